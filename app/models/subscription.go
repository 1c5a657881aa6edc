package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription is one grant of a SKU to a buyer, created by a purchase event.
// Rows are never deleted; revocation moves Status away from active.
// (user_email, sku, order_id) is the idempotency key of a grant.
type Subscription struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserEmail string    `gorm:"type:varchar(191);not null;index:ux_subscriptions_grant,unique,priority:1;index:idx_subscriptions_email_status,priority:1" json:"user_email"`
	Sku       string    `gorm:"type:varchar(191);not null;index:ux_subscriptions_grant,unique,priority:2" json:"sku"`
	OrderID   string    `gorm:"type:varchar(191);not null;index:ux_subscriptions_grant,unique,priority:3" json:"order_id"`
	Provider  string    `gorm:"type:varchar(32);not null;default:'thrivecart'" json:"provider"`
	Status    string    `gorm:"type:varchar(16);not null;default:'active';index:idx_subscriptions_email_status,priority:2" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SubscriptionStatusActive
	}
	return nil
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
