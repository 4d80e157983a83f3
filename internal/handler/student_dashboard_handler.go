package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/service"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

// StudentDashboardHandler serves the aggregated student dashboard.
type StudentDashboardHandler struct {
	dashboard service.StudentDashboardService
	logger    zerolog.Logger
}

// NewStudentDashboardHandler constructs the handler.
func NewStudentDashboardHandler(dashboard service.StudentDashboardService, logger zerolog.Logger) *StudentDashboardHandler {
	return &StudentDashboardHandler{
		dashboard: dashboard,
		logger:    logger.With().Str("component", "student_dashboard_handler").Logger(),
	}
}

// Register wires the dashboard route.
func (h *StudentDashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.get)
}

func (h *StudentDashboardHandler) get(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)

	dashboard, err := h.dashboard.GetDashboard(c.UserContext(), caller)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to build dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
