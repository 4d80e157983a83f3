package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

// RequireAuth ensures the request carries an authenticated caller. Course
// and quiz level authorization happens in the services; this gate only
// rejects anonymous traffic.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.FromRequest(c); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the authenticated caller holds one of the allowed
// roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		caller, ok := auth.FromRequest(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[caller.Role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireStaff restricts an endpoint to admin, instructor, or TA callers.
func RequireStaff() fiber.Handler {
	return RequireRole(models.RoleAdmin, models.RoleInstructor, models.RoleTA)
}
