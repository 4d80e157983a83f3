package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/middleware"
	"github.com/coursekit/coursekit-go-api/internal/service"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

// QuizHandler serves quiz metadata and attempt creation endpoints.
type QuizHandler struct {
	quizzes  service.QuizService
	attempts service.AttemptService
	logger   zerolog.Logger
}

// NewQuizHandler constructs the handler.
func NewQuizHandler(quizzes service.QuizService, attempts service.AttemptService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes:  quizzes,
		attempts: attempts,
		logger:   logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register wires the quiz routes. Attempt creation is rate limited per user;
// the cross-student attempt roster sits behind the staff gate on top of the
// ownership check in the service.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/questions", h.listQuestions)
	router.Get("/:id/allowance", h.allowance)
	router.Post("/:id/attempts", middleware.RateLimit("attempt-start", 10, time.Minute), h.startAttempt)
	router.Get("/:id/attempts", h.listOwnAttempts)
	router.Get("/:id/all-attempts", middleware.RequireStaff(), h.listAllAttempts)
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	quiz, err := h.quizzes.Get(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load quiz")
	}
	return utils.SendSuccess(c, "quiz retrieved", quiz)
}

func (h *QuizHandler) listQuestions(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	questions, err := h.quizzes.ListQuestions(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list questions")
	}
	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *QuizHandler) allowance(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	allowance, err := h.attempts.Allowance(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to resolve allowance")
	}
	return utils.SendSuccess(c, "allowance resolved", allowance)
}

func (h *QuizHandler) startAttempt(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	started, err := h.attempts.Start(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to start attempt")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", started)
}

func (h *QuizHandler) listOwnAttempts(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	attempts, err := h.attempts.ListOwn(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list attempts")
	}
	return utils.SendSuccess(c, "attempts retrieved", attempts)
}

func (h *QuizHandler) listAllAttempts(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	quizID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	attempts, err := h.attempts.ListAll(c.UserContext(), caller, quizID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list attempts")
	}
	return utils.SendSuccess(c, "attempts retrieved", attempts)
}
