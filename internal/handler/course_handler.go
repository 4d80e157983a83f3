package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/service"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

// CourseHandler serves course, roster, and announcement endpoints.
type CourseHandler struct {
	courses       service.CourseService
	enrollments   service.EnrollmentService
	announcements service.AnnouncementService
	quizzes       service.QuizService
	logger        zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses service.CourseService, enrollments service.EnrollmentService, announcements service.AnnouncementService, quizzes service.QuizService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courses:       courses,
		enrollments:   enrollments,
		announcements: announcements,
		quizzes:       quizzes,
		logger:        logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register wires the course routes.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/access", h.getAccess)
	router.Get("/:id/modules", h.listModules)
	router.Get("/:id/quizzes", h.listQuizzes)
	router.Get("/:id/enrollments", h.listEnrollments)
	router.Post("/:id/enrollments", h.enroll)
	router.Delete("/:id/enrollments/:userID", h.deactivate)
	router.Get("/:id/announcements", h.listAnnouncements)
	router.Post("/:id/announcements", h.createAnnouncement)
	router.Delete("/:id/announcements/:announcementID", h.deleteAnnouncement)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	course, err := h.courses.Get(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load course")
	}
	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) getAccess(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	courseAccess, err := h.courses.GetAccess(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to resolve access")
	}
	return utils.SendSuccess(c, "access resolved", courseAccess)
}

func (h *CourseHandler) listModules(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	modules, err := h.courses.ListModules(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list modules")
	}
	return utils.SendSuccess(c, "modules retrieved", modules)
}

func (h *CourseHandler) listQuizzes(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	quizzes, err := h.quizzes.ListByCourse(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list quizzes")
	}
	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *CourseHandler) listEnrollments(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	enrollments, err := h.enrollments.List(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list enrollments")
	}
	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *CourseHandler) enroll(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	var payload dto.EnrollRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.enrollments.Enroll(c.UserContext(), caller, courseID, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to enroll user")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user enrolled", created)
}

func (h *CourseHandler) deactivate(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}
	userID, err := parseParamID(c, "userID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.enrollments.Deactivate(c.UserContext(), caller, courseID, userID); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to deactivate enrollment")
	}
	return utils.SendSuccess(c, "enrollment deactivated", nil)
}

func (h *CourseHandler) listAnnouncements(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	announcements, err := h.announcements.List(c.UserContext(), caller, courseID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list announcements")
	}
	return utils.SendSuccess(c, "announcements retrieved", announcements)
}

func (h *CourseHandler) createAnnouncement(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	var payload dto.AnnouncementCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.announcements.Create(c.UserContext(), caller, courseID, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to create announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "announcement created", created)
}

func (h *CourseHandler) deleteAnnouncement(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	courseID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}
	announcementID, err := parseParamID(c, "announcementID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid announcement id")
	}

	if err := h.announcements.Delete(c.UserContext(), caller, courseID, announcementID); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to delete announcement")
	}
	return utils.SendSuccess(c, "announcement deleted", nil)
}
