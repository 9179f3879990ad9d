package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classpulse/quiz-go-api/internal/config"
	"github.com/classpulse/quiz-go-api/internal/handler"
	"github.com/classpulse/quiz-go-api/internal/middleware"
	"github.com/classpulse/quiz-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler    *handler.SessionHandler
	ActivationHandler *handler.ActivationHandler
	ActivityHandler   *handler.ActivityHandler
	LiveHandler       *handler.LiveHandler
	JWTMiddleware     fiber.Handler
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

	// Quiz sessions (student attempts)
	if deps.SessionHandler != nil {
		sessions := app.Group("/api/v1", jwtMiddleware, middleware.RateLimit("sessions", 120, time.Minute))
		deps.SessionHandler.Register(sessions)
	}

	// Professor-only surfaces
	if deps.ActivationHandler != nil {
		activation := app.Group("/api/v1", jwtMiddleware, middleware.RequireRole("professor", "admin"))
		deps.ActivationHandler.Register(activation)
	}
	if deps.ActivityHandler != nil {
		activities := app.Group("/api/v1", jwtMiddleware, middleware.RequireRole("professor", "admin"))
		deps.ActivityHandler.Register(activities)
	}

	// Live viewers over websocket
	if deps.LiveHandler != nil {
		live := app.Group("/api/v1/live", jwtMiddleware)
		deps.LiveHandler.Register(live)
	}
}
