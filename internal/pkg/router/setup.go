package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/app/controllers"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Entitlements is satisfied by *entitlements.Store.
type Entitlements interface {
	controllers.EntitlementChecker
	controllers.EntitlementReader
}

// Dependencies are the already built services the routes hand requests to.
type Dependencies struct {
	Config       config.Config
	Catalog      *catalog.Catalog
	Entitlements Entitlements
	Processor    controllers.WebhookProcessor
	Dispatcher   controllers.Dispatcher
	// LimiterStorage backs the run rate limit; nil keeps it in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
