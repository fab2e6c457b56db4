package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// RequireRole ensures that the session principal holds one of the allowed roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[session.Principal.Role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
