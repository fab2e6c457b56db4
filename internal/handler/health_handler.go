package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/extension-hours-api/internal/config"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Federated    bool              `json:"federated_login"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck returns a handler that reports application health. Any failing
// dependency turns the response into a 503.
func HealthCheck(cfg config.Config, checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Federated:   cfg.OAuth.Enabled(),
		}

		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
			defer cancel()

			payload.Dependencies = make(map[string]string, len(checks))
			for name, ping := range checks {
				if err := ping(ctx); err != nil {
					payload.Dependencies[name] = "unavailable"
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
