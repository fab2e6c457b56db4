package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

const correlationLocalKey = "correlation_id"

// CorrelationID tags every request with a correlation id, reusing one supplied by
// the caller, and attaches a logger carrying it to the request context so
// services can log with zerolog.Ctx.
func CorrelationID(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Locals(correlationLocalKey, id)
		c.Set(CorrelationHeader, id)

		scoped := base.With().Str("correlation_id", id).Logger()
		c.SetUserContext(scoped.WithContext(c.UserContext()))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	id, _ := c.Locals(correlationLocalKey).(string)
	return id
}
