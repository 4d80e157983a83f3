package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/middleware"
	"github.com/coursekit/coursekit-go-api/internal/service"
	"github.com/coursekit/coursekit-go-api/internal/utils"
)

func parseParamID(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps the service error taxonomy onto HTTP statuses. The
// server decision is final: a client that guessed differently from a stale
// snapshot gets the authoritative answer here.
func sendServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrQuizNotFound),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrEnrollmentNotFound),
		errors.Is(err, service.ErrNoLiveSession):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAttemptInProgress),
		errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, attempt.ErrNotInProgress),
		errors.Is(err, attempt.ErrNotSubmitting):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
