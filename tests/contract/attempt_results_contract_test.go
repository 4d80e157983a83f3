package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/handler"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/service"
)

const attemptResultsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["success", "message", "data"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["attempt", "answers"],
      "properties": {
        "attempt": {
          "type": "object",
          "required": ["id", "quiz_id", "user_id", "attempt_number", "status", "started_at", "auto_submitted"],
          "properties": {
            "id": {"type": "integer", "minimum": 1},
            "quiz_id": {"type": "integer", "minimum": 1},
            "user_id": {"type": "integer", "minimum": 1},
            "attempt_number": {"type": "integer", "minimum": 1},
            "status": {"enum": ["in_progress", "submitted", "graded"]},
            "started_at": {"type": "string", "format": "date-time"},
            "submitted_at": {"type": "string", "format": "date-time"},
            "score": {"type": "number", "minimum": 0},
            "auto_submitted": {"type": "boolean"}
          }
        },
        "answers": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["question_id"],
            "properties": {
              "question_id": {"type": "integer", "minimum": 1},
              "answer_text": {"type": "string"},
              "selected_option_ids": {"type": "array", "items": {"type": "integer", "minimum": 1}},
              "points_awarded": {"type": ["number", "null"]},
              "is_correct": {"type": "boolean"}
            }
          }
        }
      }
    }
  }
}`

type stubAttemptService struct {
	results dto.AttemptResultsResponse
}

func (s stubAttemptService) Start(context.Context, auth.Context, uint) (dto.AttemptResponse, error) {
	return dto.AttemptResponse{}, nil
}

func (s stubAttemptService) CaptureAnswer(context.Context, auth.Context, uint, uint, dto.AnswerRequest) error {
	return nil
}

func (s stubAttemptService) Submit(context.Context, auth.Context, uint) (dto.AttemptResponse, error) {
	return dto.AttemptResponse{}, nil
}

func (s stubAttemptService) Retry(context.Context, auth.Context, uint) (dto.AttemptResponse, error) {
	return dto.AttemptResponse{}, nil
}

func (s stubAttemptService) Results(context.Context, auth.Context, uint) (dto.AttemptResultsResponse, error) {
	return s.results, nil
}

func (s stubAttemptService) ListOwn(context.Context, auth.Context, uint) ([]dto.AttemptResponse, error) {
	return nil, nil
}

func (s stubAttemptService) ListAll(context.Context, auth.Context, uint) ([]dto.AttemptResponse, error) {
	return nil, nil
}

func (s stubAttemptService) Allowance(context.Context, auth.Context, uint) (service.AllowanceResponse, error) {
	return service.AllowanceResponse{}, nil
}

func (s stubAttemptService) ScoreAnswer(context.Context, auth.Context, uint, uint, float64, bool) (dto.AttemptResponse, error) {
	return dto.AttemptResponse{}, nil
}

func (s stubAttemptService) Session(auth.Context, uint) (*attempt.Session, error) {
	return nil, service.ErrNoLiveSession
}

func (s stubAttemptService) Detach(uint) {}

func TestAttemptResultsContract(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("attempt_results.schema.json", strings.NewReader(attemptResultsSchema)))
	schema, err := compiler.Compile("attempt_results.schema.json")
	require.NoError(t, err)

	now := time.Now().UTC()
	score := 7.5
	points := 2.5
	correct := true
	results := dto.AttemptResultsResponse{
		Attempt: dto.AttemptResponse{
			ID:            12,
			QuizID:        3,
			UserID:        8,
			AttemptNumber: 2,
			Status:        models.AttemptStatusGraded,
			StartedAt:     now.Add(-10 * time.Minute),
			SubmittedAt:   &now,
			Score:         &score,
			AutoSubmitted: false,
		},
		Answers: []dto.AttemptAnswerResponse{
			{
				QuestionID:        41,
				SelectedOptionIDs: []uint{101, 102},
				PointsAwarded:     &points,
				IsCorrect:         &correct,
			},
			{
				QuestionID:    42,
				AnswerText:    "Free-text response awaiting review",
				PointsAwarded: nil,
			},
		},
	}

	svc := stubAttemptService{results: results}
	attemptHandler := handler.NewAttemptHandler(svc, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v2/attempts", func(c *fiber.Ctx) error {
		auth.Bind(c, auth.Context{UserID: 8, Role: models.RoleStudent})
		return c.Next()
	})
	attemptHandler.Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/attempts/12/results", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
