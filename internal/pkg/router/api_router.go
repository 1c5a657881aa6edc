package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/thanya-aura/thanyaaura-gateway/app/controllers"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/constants"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/middleware"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config

	v1 := app.Group(constants.APIV1Route, middleware.BuyerContextMiddleware, middleware.APIKeyAuthMiddleware(cfg.GatewayAPIKey))

	ac := controllers.NewAgentController(h.deps.Catalog, h.deps.Entitlements)
	v1.Get("/agents", ac.HandleListAgents)
	v1.Get("/entitlements", middleware.RequireBuyer, ac.HandleEntitlements)

	rc := controllers.NewRunController(h.deps.Catalog, h.deps.Entitlements, h.deps.Dispatcher)
	v1.Post("/run", middleware.RequireBuyer, h.runLimiter(), rc.HandleRun)
}

// runLimiter caps runs per buyer per minute. A limit of zero or less turns
// it off.
func (h ApiRouter) runLimiter() fiber.Handler {
	limit := h.deps.Config.RunRateLimit
	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return limit <= 0
		},
		Max:        limit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if email := usercontext.GetBuyerEmail(c); email != "" {
				return "run:" + email
			}
			return "run:" + controllers.GetClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"ok": false, "error": "rate_limited", "message": "Too many run requests"})
		},
		Storage: h.deps.LimiterStorage,
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
