package models

import "time"

// BillingWebhookEvent is the audit trail of checkout deliveries. DeliveryKey
// identifies a delivery (event type, order and sku) so redeliveries of an
// already processed event can be acknowledged without touching grants again.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_key,unique,priority:1" json:"provider"`
	DeliveryKey     string     `gorm:"type:varchar(191);not null;index:ux_billing_webhook_events_provider_key,unique,priority:2" json:"delivery_key"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:text;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
