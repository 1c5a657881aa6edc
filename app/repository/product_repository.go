package repository

import (
	"context"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Seed inserts missing products and refreshes the kind of existing ones.
func (r *productRepository) Seed(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind"}),
	}).CreateInBatches(products, 100).Error
}

func (r *productRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("sku").Find(&products).Error
	return products, err
}
