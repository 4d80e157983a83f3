// Package auth carries the authenticated caller's identity as an explicit
// value threaded through the request path, instead of ambient lookups
// scattered across layers.
package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// LocalsKey is the fiber locals key the JWT middleware binds the caller
// context under. Websocket handlers read it from the upgraded connection.
const LocalsKey = "auth_context"

// Context identifies the authenticated caller for one request.
type Context struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
}

// Authenticated reports whether the context belongs to a signed-in user.
func (c Context) Authenticated() bool {
	return c.UserID != 0
}

// IsAdmin reports whether the caller holds the admin role.
func (c Context) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// IsStaff reports whether the caller may use instructor-level endpoints.
func (c Context) IsStaff() bool {
	return c.Role == models.RoleAdmin || c.Role == models.RoleInstructor || c.Role == models.RoleTA
}

// Bind attaches the auth context to the active request.
func Bind(c *fiber.Ctx, authCtx Context) {
	c.Locals(LocalsKey, authCtx)
}

// FromRequest extracts the auth context bound by the JWT middleware.
func FromRequest(c *fiber.Ctx) (Context, bool) {
	value := c.Locals(LocalsKey)
	if value == nil {
		return Context{}, false
	}

	authCtx, ok := value.(Context)
	if !ok || !authCtx.Authenticated() {
		return Context{}, false
	}
	return authCtx, true
}
