package models

import "time"

// Product is the persisted copy of a primary catalog SKU. The catalog file
// stays authoritative; this table exists for reporting and foreign tooling.
type Product struct {
	Sku       string    `gorm:"type:varchar(191);primaryKey" json:"sku"`
	Kind      string    `gorm:"type:varchar(16);not null" json:"kind"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
