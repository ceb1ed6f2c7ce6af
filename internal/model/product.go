package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
)

var productNext = map[ProductStatus]map[ProductStatus]bool{
	ProductStatusAvailable: {ProductStatusSold: true},
	ProductStatusSold:      {},
}

// CanTransition reports whether a product may move from one status to another.
// sold is terminal.
func (s ProductStatus) CanTransition(to ProductStatus) bool {
	return productNext[s][to]
}

type Product struct {
	ID             string          `gorm:"primaryKey;size:36"`
	SellerID       string          `gorm:"column:seller_id;size:128;index;not null"`
	Name           string          `gorm:"size:160;not null"`
	Description    string          `gorm:"type:text;not null"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency       string          `gorm:"size:3;not null;default:USD"`
	Condition      string          `gorm:"size:32"`
	Brand          string          `gorm:"size:80;index"`
	Images         []string        `gorm:"serializer:json;type:text"`
	OpenToTrade    bool            `gorm:"column:open_to_trade;not null;default:false"`
	Status         ProductStatus   `gorm:"size:16;index;not null;default:available"`
	SoldAt         *time.Time      `gorm:"column:sold_at"`
	SoldViaTradeID *string         `gorm:"column:sold_via_trade_id;size:36"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ProductStatusAvailable
	}
	return nil
}

func (p *Product) IsSold() bool {
	return p.Status == ProductStatusSold
}

// OwnerID exposes the seller to the authorization guard.
func (p *Product) OwnerID() string {
	return p.SellerID
}
