package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/middleware"
	"github.com/coursekit/coursekit-go-api/internal/service"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

// AttemptHandler serves the attempt lifecycle endpoints including the
// websocket countdown timer.
type AttemptHandler struct {
	attempts service.AttemptService
	logger   zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(attempts service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		logger:   logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register wires the attempt routes.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Put("/:id/answers/:questionID", h.captureAnswer)
	router.Post("/:id/submit", h.submit)
	router.Post("/:id/retry", h.retry)
	router.Get("/:id/results", h.results)
	router.Post("/:id/answers/:answerID/score", middleware.RequireStaff(), h.scoreAnswer)

	router.Use("/:id/timer", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/timer", websocket.New(h.timer))
}

func (h *AttemptHandler) captureAnswer(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	attemptID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attempt id")
	}
	questionID, err := parseParamID(c, "questionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid question id")
	}

	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.attempts.CaptureAnswer(c.UserContext(), caller, attemptID, questionID, payload); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to capture answer")
	}
	return utils.SendSuccess(c, "answer captured", nil)
}

func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	attemptID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attempt id")
	}

	submitted, err := h.attempts.Submit(c.UserContext(), caller, attemptID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to submit attempt")
	}
	return utils.SendSuccess(c, "attempt submitted", submitted)
}

func (h *AttemptHandler) retry(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	attemptID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attempt id")
	}

	submitted, err := h.attempts.Retry(c.UserContext(), caller, attemptID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to retry submission")
	}
	return utils.SendSuccess(c, "attempt submitted", submitted)
}

func (h *AttemptHandler) results(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	attemptID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attempt id")
	}

	results, err := h.attempts.Results(c.UserContext(), caller, attemptID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load results")
	}
	return utils.SendSuccess(c, "results retrieved", results)
}

type scoreRequest struct {
	Points  float64 `json:"points"`
	Correct bool    `json:"correct"`
}

func (h *AttemptHandler) scoreAnswer(c *fiber.Ctx) error {
	caller, _ := auth.FromRequest(c)
	attemptID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attempt id")
	}
	answerID, err := parseParamID(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid answer id")
	}

	var payload scoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.Points < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "points must not be negative")
	}

	graded, err := h.attempts.ScoreAnswer(c.UserContext(), caller, attemptID, answerID, payload.Points, payload.Correct)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to score answer")
	}
	return utils.SendSuccess(c, "answer scored", graded)
}

// timerUpdate is one countdown frame pushed to the client.
type timerUpdate struct {
	AttemptID        uint          `json:"attempt_id"`
	RemainingSeconds int           `json:"remaining_seconds"`
	State            attempt.State `json:"state"`
}

// timer streams one countdown update per second and drives the session
// clock. A closed socket only stops tick delivery; the session stays
// attached until the attempt completes, so reconnecting resumes the
// countdown. The expiry auto-submit happens inside Tick before the final
// frame goes out.
func (h *AttemptHandler) timer(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	caller, ok := authFromConn(conn)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		return
	}

	attemptID, err := parseConnParamID(conn, "id")
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid attempt id"))
		return
	}

	session, err := h.attempts.Session(caller, attemptID)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "no live session"))
		return
	}

	h.logger.Info().Uint("attempt_id", attemptID).Msg("timer stream connected")
	defer h.logger.Info().Uint("attempt_id", attemptID).Msg("timer stream disconnected")

	initial := timerUpdate{
		AttemptID:        attemptID,
		RemainingSeconds: session.RemainingSeconds(),
		State:            session.State(),
	}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ctx := context.Background()
	for range ticker.C {
		if err := session.Tick(ctx); err != nil {
			h.logger.Error().Err(err).Uint("attempt_id", attemptID).Msg("tick delivery failed")
		}

		update := timerUpdate{
			AttemptID:        attemptID,
			RemainingSeconds: session.RemainingSeconds(),
			State:            session.State(),
		}
		if err := conn.WriteJSON(update); err != nil {
			// A dropped socket is not an abandonment. The session stays
			// attached so a reconnect resumes the countdown; an expired
			// session auto-submits on the reconnect's first tick.
			return
		}

		if session.State() == attempt.StateCompleted {
			h.attempts.Detach(attemptID)
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt completed"))
			return
		}
	}
}

func authFromConn(conn *websocket.Conn) (auth.Context, bool) {
	value := conn.Locals(auth.LocalsKey)
	if value == nil {
		return auth.Context{}, false
	}
	caller, ok := value.(auth.Context)
	if !ok || !caller.Authenticated() {
		return auth.Context{}, false
	}
	return caller, true
}

func parseConnParamID(conn *websocket.Conn, name string) (uint, error) {
	value := strings.TrimSpace(conn.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(parsed), nil
}
