package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/constants"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	cfg := h.deps.Config

	handlers := []fiber.Handler{}
	if cfg.MetricsUsername != "" && cfg.MetricsPassword != "" {
		handlers = append(handlers, basicauth.New(basicauth.Config{
			Users: map[string]string{
				cfg.MetricsUsername: cfg.MetricsPassword,
			},
		}))
	}

	// Prometheus exposition
	app.Get(constants.MetricsRoute, append(handlers, adaptor.HTTPHandler(promhttp.Handler()))...)

	// fiber runtime monitor
	app.Get(constants.MonitorRoute, append(handlers, monitor.New(monitor.Config{Title: "thanyaaura-gateway"}))...)
}
