package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coursekit/coursekit-go-api/internal/config"
	"github.com/coursekit/coursekit-go-api/internal/handler"
	"github.com/coursekit/coursekit-go-api/internal/middleware"
	"github.com/coursekit/coursekit-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler           *handler.CourseHandler
	QuizHandler             *handler.QuizHandler
	AttemptHandler          *handler.AttemptHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & metrics
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Every v2 route requires a bound caller; capability checks happen in
	// the services.
	requireAuth := middleware.RequireAuth()

	if deps.CourseHandler != nil {
		courses := app.Group("/api/v2/courses", jwtMiddleware, requireAuth)
		deps.CourseHandler.Register(courses)
	}

	if deps.QuizHandler != nil {
		quizzes := app.Group("/api/v2/quizzes", jwtMiddleware, requireAuth)
		deps.QuizHandler.Register(quizzes)
	}

	if deps.AttemptHandler != nil {
		attempts := app.Group("/api/v2/attempts", jwtMiddleware, requireAuth)
		deps.AttemptHandler.Register(attempts)
	}

	if deps.StudentDashboardHandler != nil {
		students := app.Group("/api/v2/students", jwtMiddleware, requireAuth)
		deps.StudentDashboardHandler.Register(students)
	}
}
