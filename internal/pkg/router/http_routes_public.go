package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/app/controllers"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Liveness
	app.Get(constants.HealthRoute, controllers.HandleHealth)
	app.Get(constants.HealthzRoute, controllers.HandleHealth)

	// Checkout webhooks, authenticated by the provider's shared secret
	bc := controllers.NewBillingController(h.deps.Processor, h.webhookSecrets())
	billingGroup := app.Group(constants.BillingRoute)
	billingGroup.Post("/:provider", bc.HandleWebhook)
	billingGroup.Get("/:provider", bc.HandleProbe) // also answers HEAD
}
