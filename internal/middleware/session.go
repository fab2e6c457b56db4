package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

const sessionLocalKey = "session"

// SessionResolver turns a bearer token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (auth.Session, error)
}

// RequireSession rejects requests without a valid bearer session and stores the
// resolved session on the request for handlers.
func RequireSession(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		session, err := resolver.Resolve(c.UserContext(), strings.TrimSpace(authorization[len(bearer):]))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "session is invalid or expired")
		}

		c.Locals(sessionLocalKey, session)
		c.Locals("actor_id", session.ActorID())
		return c.Next()
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(c *fiber.Ctx) (auth.Session, bool) {
	if c == nil {
		return auth.Session{}, false
	}
	session, ok := c.Locals(sessionLocalKey).(auth.Session)
	return session, ok
}

// WithSession stores session on the request. Tests and internal callers use it to
// bypass token parsing.
func WithSession(c *fiber.Ctx, session auth.Session) {
	c.Locals(sessionLocalKey, session)
	c.Locals("actor_id", session.ActorID())
}
