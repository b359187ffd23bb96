package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-notify-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Stats    *handlers.StatsHandler
	Webhook  *handlers.WebhookHandler
	Realtime *handlers.RealtimeHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/stats/connections", cfg.Stats.Connections)

	app.Post("/webhook/test", cfg.Webhook.Receive)

	app.Use("/ws", cfg.Realtime.Upgrade)
	app.Get("/ws", cfg.Realtime.Serve())
}
