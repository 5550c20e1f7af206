package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lumostories/telemetry-api/internal/config"
	"github.com/lumostories/telemetry-api/internal/handler"
	"github.com/lumostories/telemetry-api/internal/middleware"
	"github.com/lumostories/telemetry-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EventHandler          *handler.EventHandler
	AdminActivityHandler  *handler.AdminActivityHandler
	AdminDashboardHandler *handler.AdminDashboardHandler
	AdminExportHandler    *handler.AdminExportHandler
	AdminSanctionHandler  *handler.AdminSanctionHandler
	JWTMiddleware         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Event ingest for authenticated producers
	if deps.EventHandler != nil {
		events := api.Group("/events", jwtMiddleware, middleware.RateLimit("events", 60, time.Minute))
		deps.EventHandler.Register(events)
	}

	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole("admin"))

	// Activity explorer, sink control, dashboard and export
	if deps.AdminActivityHandler != nil {
		activity := admin.Group("/activity")
		deps.AdminActivityHandler.Register(activity)

		if deps.AdminDashboardHandler != nil {
			deps.AdminDashboardHandler.Register(activity)
		}
		if deps.AdminExportHandler != nil {
			deps.AdminExportHandler.Register(activity)
		}
	}

	// User sanctions
	if deps.AdminSanctionHandler != nil {
		users := admin.Group("/users")
		deps.AdminSanctionHandler.Register(users)
	}
}
