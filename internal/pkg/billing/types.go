package billing

import (
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

// Event is a provider-neutral purchase event. Provider adapters (ThriveCart
// today) fill it from their wire format before handing it to the Processor.
type Event struct {
	Provider string `json:"provider" validate:"required"`
	Type     string `json:"event" validate:"required"`
	OrderID  string `json:"order_id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Sku      string `json:"sku" validate:"required"`

	// PayloadJSON is the raw delivery, kept for the audit trail.
	PayloadJSON string `json:"-"`
}

// AuthorizationResult describes what a handled event changed.
type AuthorizationResult struct {
	Event       string              `json:"event"`
	Email       string              `json:"email"`
	Sku         string              `json:"sku"`
	OrderID     string              `json:"order_id"`
	Agents      []catalog.AgentSlug `json:"agents"`
	Source      string              `json:"source,omitempty"`
	Created     bool                `json:"created"`
	Reactivated bool                `json:"reactivated"`
	Revoked     int64               `json:"revoked"`
	Duplicate   bool                `json:"duplicate"`
}
