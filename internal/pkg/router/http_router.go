package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/billing"
)

// HttpRouter carries the routes outside the versioned API: probes, checkout
// webhooks and operational endpoints.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) webhookSecrets() map[string]string {
	return map[string]string{
		billing.ProviderThriveCart: h.deps.Config.ThriveCartSecret,
	}
}
