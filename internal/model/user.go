package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                 string    `gorm:"primaryKey;size:128"`
	Email              string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash       string    `gorm:"column:password_hash;size:72"`
	Name               string    `gorm:"size:120"`
	Role               string    `gorm:"size:20;not null;default:user"`
	SubscriptionActive bool      `gorm:"column:subscription_active;not null;default:false"`
	StripeCustomerID   string    `gorm:"column:stripe_customer_id;size:64;index"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	return nil
}
