package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusApproved TradeStatus = "approved"
	TradeStatusRejected TradeStatus = "rejected"
)

var tradeNext = map[TradeStatus]map[TradeStatus]bool{
	TradeStatusPending:  {TradeStatusApproved: true, TradeStatusRejected: true},
	TradeStatusApproved: {},
	TradeStatusRejected: {},
}

func (s TradeStatus) CanTransition(to TradeStatus) bool {
	return tradeNext[s][to]
}

func (s TradeStatus) IsTerminal() bool {
	return len(tradeNext[s]) == 0
}

// Trade is a barter proposal: ProposerID offers OfferedProductID in exchange
// for RequestedProductID, whose seller (OwnerID) decides.
type Trade struct {
	ID                 string      `gorm:"primaryKey;size:36"`
	OfferedProductID   string      `gorm:"column:offered_product_id;size:36;index;not null"`
	RequestedProductID string      `gorm:"column:requested_product_id;size:36;index;not null"`
	ProposerID         string      `gorm:"column:proposer_id;size:128;index;not null"`
	OwnerID            string      `gorm:"column:owner_id;size:128;index;not null"`
	Status             TradeStatus `gorm:"size:16;index;not null;default:pending"`
	ResolvedAt         *time.Time  `gorm:"column:resolved_at"`
	CreatedAt          time.Time   `gorm:"autoCreateTime;index"`
	UpdatedAt          time.Time   `gorm:"autoUpdateTime"`
}

func (Trade) TableName() string {
	return "trades"
}

func (t *Trade) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TradeStatusPending
	}
	return nil
}

func (t *Trade) ProposerUID() string {
	return t.ProposerID
}

func (t *Trade) OwnerUID() string {
	return t.OwnerID
}
