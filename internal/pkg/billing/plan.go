package billing

import (
	"strings"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
)

// Checkout event types the gateway acts on.
const (
	EventOrderSuccess               = "order.success"
	EventOrderSubscriptionPayment   = "order.subscription_payment"
	EventOrderRefund                = "order.refund"
	EventOrderCancel                = "order.cancel"
	EventOrderSubscriptionCancelled = "order.subscription_cancelled"
	EventOrderSubscriptionExpired   = "order.subscription_expired"
	EventOrderRebillFailed          = "order.rebill_failed"
)

type action int

const (
	actionNone action = iota
	actionGrant
	actionRenew
	actionRevoke
)

// eventPlan says what an event type does: grant the SKU, renew it (which
// also brings a lapsed grant back), or revoke it into the returned
// subscription status.
func eventPlan(eventType string) (action, string) {
	switch normalizeEventType(eventType) {
	case EventOrderSuccess:
		return actionGrant, models.SubscriptionStatusActive
	case EventOrderSubscriptionPayment:
		return actionRenew, models.SubscriptionStatusActive
	case EventOrderRefund, EventOrderCancel, EventOrderSubscriptionCancelled:
		return actionRevoke, models.SubscriptionStatusCanceled
	case EventOrderSubscriptionExpired, EventOrderRebillFailed:
		return actionRevoke, models.SubscriptionStatusExpired
	default:
		return actionNone, ""
	}
}

func normalizeEventType(eventType string) string {
	return strings.ToLower(strings.TrimSpace(eventType))
}
