package repository

import (
	"context"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// CreateIfNotExists inserts the grant unless (user_email, sku, order_id)
// already exists. The unique index is the only concurrency guard; a conflict
// is not an error and reports created=false.
func (r *subscriptionRepository) CreateIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_email"},
			{Name: "sku"},
			{Name: "order_id"},
		},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *subscriptionRepository) ListActiveSkus(ctx context.Context, email string) ([]string, error) {
	var skus []string
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_email = ? AND status = ?", email, models.SubscriptionStatusActive).
		Distinct("sku").
		Order("sku").
		Pluck("sku", &skus).Error
	return skus, err
}

func (r *subscriptionRepository) ListByEmail(ctx context.Context, email string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// UpdateStatus moves active rows of one grant to the given status and
// returns how many rows changed.
func (r *subscriptionRepository) UpdateStatus(ctx context.Context, email, sku, orderID, status string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_email = ? AND sku = ? AND order_id = ? AND status = ?", email, sku, orderID, models.SubscriptionStatusActive).
		Update("status", status)
	return tx.RowsAffected, tx.Error
}

// Reactivate moves a canceled or expired grant back to active and returns
// how many rows changed. Active rows are left alone.
func (r *subscriptionRepository) Reactivate(ctx context.Context, email, sku, orderID string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_email = ? AND sku = ? AND order_id = ? AND status <> ?", email, sku, orderID, models.SubscriptionStatusActive).
		Update("status", models.SubscriptionStatusActive)
	return tx.RowsAffected, tx.Error
}
