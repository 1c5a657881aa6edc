package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.Product{}, &models.BillingWebhookEvent{}))
	return db
}

func TestSubscriptionCreateIfNotExistsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))

	first := &models.Subscription{UserEmail: "buyer@example.com", Sku: "cfp", OrderID: "1001", Provider: "thrivecart"}
	created, err := repo.CreateIfNotExists(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	again := &models.Subscription{UserEmail: "buyer@example.com", Sku: "cfp", OrderID: "1001", Provider: "thrivecart"}
	created, err = repo.CreateIfNotExists(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	subs, err := repo.ListByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, models.SubscriptionStatusActive, subs[0].Status)
}

func TestSubscriptionActiveSkusAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))

	for _, s := range []models.Subscription{
		{UserEmail: "a@example.com", Sku: "premium", OrderID: "1"},
		{UserEmail: "a@example.com", Sku: "cfp", OrderID: "2"},
		{UserEmail: "a@example.com", Sku: "cfp", OrderID: "3"},
		{UserEmail: "b@example.com", Sku: "revs", OrderID: "4"},
	} {
		sub := s
		_, err := repo.CreateIfNotExists(ctx, &sub)
		require.NoError(t, err)
	}

	skus, err := repo.ListActiveSkus(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"cfp", "premium"}, skus)

	n, err := repo.UpdateStatus(ctx, "a@example.com", "cfp", "2", models.SubscriptionStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the other cfp order still grants it
	skus, err = repo.ListActiveSkus(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"cfp", "premium"}, skus)

	n, err = repo.UpdateStatus(ctx, "a@example.com", "cfp", "2", models.SubscriptionStatusExpired)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "only active rows transition")

	n, err = repo.UpdateStatus(ctx, "nobody@example.com", "cfp", "9", models.SubscriptionStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	subs, err := repo.ListByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, subs, 3, "rows are never deleted")
}

func TestSubscriptionReactivate(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))

	sub := &models.Subscription{UserEmail: "a@example.com", Sku: "cfp", OrderID: "sub_9", Status: models.SubscriptionStatusActive}
	_, err := repo.CreateIfNotExists(ctx, sub)
	require.NoError(t, err)

	n, err := repo.Reactivate(ctx, "a@example.com", "cfp", "sub_9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "active rows are untouched")

	_, err = repo.UpdateStatus(ctx, "a@example.com", "cfp", "sub_9", models.SubscriptionStatusExpired)
	require.NoError(t, err)
	skus, err := repo.ListActiveSkus(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, skus)

	n, err = repo.Reactivate(ctx, "a@example.com", "cfp", "sub_9")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	skus, err = repo.ListActiveSkus(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"cfp"}, skus)
}

func TestProductSeed(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	require.NoError(t, repo.Seed(ctx, []models.Product{{Sku: "cfp", Kind: "agent"}, {Sku: "premium", Kind: "tier"}}))
	require.NoError(t, repo.Seed(ctx, []models.Product{{Sku: "cfp", Kind: "agent"}}))
	require.NoError(t, repo.Seed(ctx, nil))

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "cfp", products[0].Sku)
	assert.Equal(t, "tier", products[1].Kind)
}

func TestWebhookEventDedup(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository(newTestDB(t))

	ev := &models.BillingWebhookEvent{Provider: "thrivecart", DeliveryKey: "order.success:1001:cfp", EventType: "order.success", PayloadJSON: "{}"}
	created, stored, err := repo.CreateIfNotExists(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, stored.ProcessedAt)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, ""))

	dup := &models.BillingWebhookEvent{Provider: "thrivecart", DeliveryKey: "order.success:1001:cfp", EventType: "order.success", PayloadJSON: "{}"}
	created, stored, err = repo.CreateIfNotExists(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}

func TestFactorySingletons(t *testing.T) {
	f := NewFactory(newTestDB(t))
	assert.Same(t, f.GetRepositories(), f.GetRepositories())
	assert.NotNil(t, f.GetSubscriptionRepository())
	assert.NotNil(t, f.GetProductRepository())
	assert.NotNil(t, f.GetWebhookEventRepository())
}
