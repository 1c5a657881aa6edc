package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// SetupDatabase connects with retries and migrates the schema.
func SetupDatabase(cfg config.Database) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err == nil {
			if err = Migrate(db); err != nil {
				return nil, err
			}
			return db, nil
		}

		log.Warn().Err(err).Int("try", i+1).Int("max_tries", maxRetries).Str("driver", cfg.Driver).Msg("failed to connect to database")
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect database: %w", err)
}

// Migrate brings the gateway tables up to date. cmd/migrate runs the SQL
// migrations for production; this keeps local and test databases usable.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.Subscription{},
		&models.Product{},
		&models.BillingWebhookEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedProducts mirrors the primary catalog SKUs into the products table.
func SeedProducts(ctx context.Context, seeder interface {
	Seed(ctx context.Context, products []models.Product) error
}, c *catalog.Catalog) error {
	products := make([]models.Product, 0, len(c.Table.Primary))
	for _, sku := range c.PrimarySkus() {
		products = append(products, models.Product{Sku: string(sku), Kind: string(c.Table.Kinds[sku])})
	}
	return seeder.Seed(ctx, products)
}

// Dialector picks the gorm driver for DB_DRIVER.
func Dialector(cfg config.Database) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "mysql", "mariadb":
		return mysql.New(mysql.Config{
			DSN:                       MySQLDSN(cfg),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// PostgresDSN prefers DATABASE_URL and falls back to the DB_* parts.
func PostgresDSN(cfg config.Database) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, port)
}

func MySQLDSN(cfg config.Database) string {
	if cfg.URL != "" {
		return strings.TrimPrefix(cfg.URL, "mysql://")
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Name)
}

// MigrateURL is the golang-migrate database URL for cmd/migrate.
func MigrateURL(cfg config.Database) (string, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		if cfg.URL != "" {
			return cfg.URL, nil
		}
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Host + ":" + port,
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "mysql", "mariadb":
		return "mysql://" + MySQLDSN(cfg) + "&multiStatements=true", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// MigrationsDir is the per-driver directory under migrations/.
func MigrationsDir(cfg config.Database) string {
	switch strings.ToLower(cfg.Driver) {
	case "mysql", "mariadb":
		return "mysql"
	default:
		return "postgres"
	}
}
