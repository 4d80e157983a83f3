package dto

import (
	"encoding/json"
	"time"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/models"
)

// AnswerRequest captures one draft answer into the live attempt session.
type AnswerRequest struct {
	AnswerText        string `json:"answer_text" validate:"omitempty,max=65535"`
	SelectedOptionIDs []uint `json:"selected_option_ids" validate:"omitempty,dive,gt=0"`
}

// AttemptResponse is the serialized attempt record.
type AttemptResponse struct {
	ID               uint                 `json:"id"`
	QuizID           uint                 `json:"quiz_id"`
	UserID           uint                 `json:"user_id"`
	AttemptNumber    int                  `json:"attempt_number"`
	Status           models.AttemptStatus `json:"status"`
	StartedAt        time.Time            `json:"started_at"`
	SubmittedAt      *time.Time           `json:"submitted_at,omitempty"`
	Score            *float64             `json:"score,omitempty"`
	AutoSubmitted    bool                 `json:"auto_submitted"`
	RemainingSeconds *int                 `json:"remaining_seconds,omitempty"`
}

// NewAttemptResponse converts a model into a DTO. remainingSeconds comes
// from the live session when one is attached, nil otherwise.
func NewAttemptResponse(model models.QuizAttempt, remainingSeconds *int) AttemptResponse {
	return AttemptResponse{
		ID:               model.ID,
		QuizID:           model.QuizID,
		UserID:           model.UserID,
		AttemptNumber:    model.AttemptNumber,
		Status:           model.Status,
		StartedAt:        model.StartedAt,
		SubmittedAt:      model.SubmittedAt,
		Score:            model.Score,
		AutoSubmitted:    model.AutoSubmitted,
		RemainingSeconds: remainingSeconds,
	}
}

// NewAttemptResponseSlice converts a slice of models into DTOs.
func NewAttemptResponseSlice(attempts []models.QuizAttempt) []AttemptResponse {
	responses := make([]AttemptResponse, 0, len(attempts))
	for _, model := range attempts {
		responses = append(responses, NewAttemptResponse(model, nil))
	}
	return responses
}

// AttemptAnswerResponse is one graded or pending answer in a results view.
type AttemptAnswerResponse struct {
	QuestionID        uint     `json:"question_id"`
	AnswerText        string   `json:"answer_text,omitempty"`
	SelectedOptionIDs []uint   `json:"selected_option_ids,omitempty"`
	PointsAwarded     *float64 `json:"points_awarded"`
	IsCorrect         *bool    `json:"is_correct,omitempty"`
}

// AttemptResultsResponse is the post-submission review payload.
type AttemptResultsResponse struct {
	Attempt AttemptResponse         `json:"attempt"`
	Answers []AttemptAnswerResponse `json:"answers"`
}

// NewAttemptResultsResponse builds the review payload. Correctness and
// points are included per answer only when revealCorrect is set; the
// attempt-level score is always present once grading ran.
func NewAttemptResultsResponse(model models.QuizAttempt, revealCorrect bool) AttemptResultsResponse {
	answers := make([]AttemptAnswerResponse, 0, len(model.Answers))
	for _, answer := range model.Answers {
		response := AttemptAnswerResponse{
			QuestionID: answer.QuestionID,
			AnswerText: answer.AnswerText,
		}
		if len(answer.SelectedOptionIDs) > 0 {
			var ids []uint
			if err := json.Unmarshal(answer.SelectedOptionIDs, &ids); err == nil {
				response.SelectedOptionIDs = ids
			}
		}
		if revealCorrect {
			response.PointsAwarded = answer.PointsAwarded
			response.IsCorrect = answer.IsCorrect
		}
		answers = append(answers, response)
	}

	return AttemptResultsResponse{
		Attempt: NewAttemptResponse(model, nil),
		Answers: answers,
	}
}

// NewAnswerDraft maps an AnswerRequest onto the session draft shape.
func (r AnswerRequest) NewAnswerDraft(questionID uint) attempt.AnswerDraft {
	return attempt.AnswerDraft{
		QuestionID:        questionID,
		AnswerText:        r.AnswerText,
		SelectedOptionIDs: r.SelectedOptionIDs,
	}
}
