package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/app/repository"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/billing"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/cache"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/constants"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/database"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/entitlements"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/env"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/logging"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/mail"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/metrics"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/providers"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/router"
)

const shutdownTimeout = 15 * time.Second

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.IsDev())

	app, err := NewApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
		log.Info().Str("addr", addr).Msg("gateway listening")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// NewApplication wires the catalog, store, processor and provider router
// into a fiber app.
func NewApplication(cfg config.Config) (*fiber.App, error) {
	cat, err := catalog.LoadFile(cfg.SkuCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load sku catalog: %w", err)
	}

	collector := metrics.Get()
	resolver := catalog.NewResolver(cat.Table, cfg.AgentFallbackEnabled, collector)
	if !cfg.AgentFallbackEnabled {
		if orphaned := resolver.FallbackOnly(); len(orphaned) > 0 {
			log.Warn().Int("skus", len(orphaned)).Msg("fallback disabled: legacy SKUs without a primary entry will be rejected")
		}
	}

	db, err := database.SetupDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	repos := repository.NewFactory(db).GetRepositories()

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.SeedProducts(seedCtx, repos.Product, cat); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}

	store := entitlements.NewStore(repos.Subscription, resolver)

	opts := billing.Options{
		Audit:      repos.WebhookEvent,
		Recorder:   collector,
		Retries:    cfg.WebhookStoreRetries,
		RetryDelay: cfg.WebhookStoreRetryDelay,
	}
	if mailer := mail.NewSMTPMailer(cfg.SMTP, cat); mailer != nil {
		opts.Notifier = mailer
	}
	processor := billing.NewProcessor(resolver, store, opts)

	dispatcher := providers.NewRouterFromConfig(cfg, collector)
	for kind, ok := range dispatcher.Configured() {
		if !ok {
			log.Warn().Str("provider", string(kind)).Msg("provider has no API key; runs against it will fail")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "thanyaaura-gateway",
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		if _, err := router.LoadOpenAPI(specPath); err != nil {
			return nil, err
		}
		app.Use(swagger.New(swagger.Config{
			BasePath: constants.DocsBasePath,
			FilePath: specPath,
			Path:     constants.DocsPath,
		}))
	} else {
		log.Warn().Msg("openapi.yml not found, /docs/api/v1 disabled")
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Config:         cfg,
		Catalog:        cat,
		Entitlements:   store,
		Processor:      processor,
		Dispatcher:     dispatcher,
		LimiterStorage: cache.LimiterStorage(cfg.Cache),
	})

	log.Info().
		Bool("fallback_enabled", cfg.AgentFallbackEnabled).
		Int("agents", len(cat.Agents())).
		Int("primary_skus", len(cat.Table.Primary)).
		Msg("gateway ready")
	return app, nil
}

func findOpenAPISpec() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/gateway to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		candidate := path + constants.OpenAPIFile
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
