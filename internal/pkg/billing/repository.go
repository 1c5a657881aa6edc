package billing

import (
	"context"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

// SkuResolver is satisfied by *catalog.Resolver.
type SkuResolver interface {
	Resolve(sku catalog.Sku) (catalog.Resolution, error)
}

// GrantStore is satisfied by *entitlements.Store.
type GrantStore interface {
	RecordGrant(ctx context.Context, email, sku, orderID, provider string) (bool, error)
	RenewGrant(ctx context.Context, email, sku, orderID, provider string) (created bool, reactivated bool, err error)
	Revoke(ctx context.Context, email, sku, orderID, status string) (int64, error)
}

// AuditRepository persists the delivery audit trail. Optional.
type AuditRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Notifier tells the buyer which agents a purchase unlocked. Optional and
// best-effort.
type Notifier interface {
	NotifyPurchase(ctx context.Context, email string, agents []catalog.AgentSlug) error
}

// Recorder counts deliveries; metrics.Collector implements it.
type Recorder interface {
	RecordWebhook(provider, event, result string)
}
