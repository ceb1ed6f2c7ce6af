package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTradeProposed = "trade_proposed"
	NotificationTradeApproved = "trade_approved"
	NotificationTradeRejected = "trade_rejected"
	NotificationMessage       = "message"
)

type Notification struct {
	ID        string     `gorm:"primaryKey;size:36"`
	UserID    string     `gorm:"column:user_id;size:128;index;not null"`
	Type      string     `gorm:"column:type;size:64;not null"`
	Title     string     `gorm:"column:title;size:255"`
	Body      string     `gorm:"column:body;type:text"`
	ProductID *string    `gorm:"column:product_id;size:36;index"`
	TradeID   *string    `gorm:"column:trade_id;size:36;index"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
