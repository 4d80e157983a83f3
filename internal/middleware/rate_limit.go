package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/coursekit/coursekit-go-api/internal/auth"
)

// RateLimit creates a per-user rate limiter middleware instance. Anonymous
// requests are keyed by client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := c.IP()
			if caller, ok := auth.FromRequest(c); ok {
				key = fmt.Sprintf("%d", caller.UserID)
			}
			return fmt.Sprintf("%s:%s", identifier, key)
		},
	})
}
