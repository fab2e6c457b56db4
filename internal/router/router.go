package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/extension-hours-api/internal/config"
	"github.com/noah-isme/extension-hours-api/internal/handler"
	"github.com/noah-isme/extension-hours-api/internal/middleware"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	StudentHandler *handler.StudentHandler
	PlaceHandler   *handler.PlaceHandler
	RecordHandler  *handler.RecordHandler
	AuditHandler   *handler.AuditHandler
	Sessions       middleware.SessionResolver
	HealthChecks   map[string]handler.Pinger
	// LoginRateLimit caps login attempts per client per minute; zero disables it.
	LoginRateLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	requireSession := middleware.RequireSession(deps.Sessions)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleDepartment)

	var loginLimiter fiber.Handler
	if deps.LoginRateLimit > 0 {
		loginLimiter = middleware.RateLimit("login", deps.LoginRateLimit, time.Minute)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), requireSession, loginLimiter)
		deps.AuthHandler.RegisterUsers(api.Group("/users", requireSession, middleware.RequireRole(models.RoleAdmin)))
	}

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students", requireSession))
	}

	if deps.PlaceHandler != nil {
		deps.PlaceHandler.Register(api.Group("/places", requireSession))
	}

	if deps.RecordHandler != nil {
		deps.RecordHandler.Register(api.Group("/records", requireSession))
	}

	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(api.Group("/audit", requireSession, staff))
	}
}
