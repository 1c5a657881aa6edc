package repository

import (
	"context"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"gorm.io/gorm"
)

// SubscriptionRepository defines the database operations behind entitlements
type SubscriptionRepository interface {
	CreateIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error)
	ListActiveSkus(ctx context.Context, email string) ([]string, error)
	ListByEmail(ctx context.Context, email string) ([]models.Subscription, error)
	UpdateStatus(ctx context.Context, email, sku, orderID, status string) (int64, error)
	Reactivate(ctx context.Context, email, sku, orderID string) (int64, error)
}

// ProductRepository keeps the products table in line with the catalog
type ProductRepository interface {
	Seed(ctx context.Context, products []models.Product) error
	List(ctx context.Context) ([]models.Product, error)
}

// WebhookEventRepository stores the billing delivery audit trail
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Subscription SubscriptionRepository
	Product      ProductRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(db),
		Product:      NewProductRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
