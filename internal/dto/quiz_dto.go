package dto

import (
	"time"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// QuizResponse is the serialized quiz definition.
type QuizResponse struct {
	ID                 uint      `json:"id"`
	CourseID           uint      `json:"course_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	AllowedAttempts    int       `json:"allowed_attempts"`
	TimeLimitMinutes   int       `json:"time_limit_minutes"`
	ShuffleQuestions   bool      `json:"shuffle_questions"`
	ShuffleAnswers     bool      `json:"shuffle_answers"`
	ShowCorrectAnswers bool      `json:"show_correct_answers"`
	Published          bool      `json:"published"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewQuizResponse converts a model into a DTO.
func NewQuizResponse(quiz models.Quiz) QuizResponse {
	return QuizResponse{
		ID:                 quiz.ID,
		CourseID:           quiz.CourseID,
		Title:              quiz.Title,
		Description:        quiz.Description,
		AllowedAttempts:    quiz.AllowedAttempts,
		TimeLimitMinutes:   quiz.TimeLimitMinutes,
		ShuffleQuestions:   quiz.ShuffleQuestions,
		ShuffleAnswers:     quiz.ShuffleAnswers,
		ShowCorrectAnswers: quiz.ShowCorrectAnswers,
		Published:          quiz.Published,
		CreatedAt:          quiz.CreatedAt,
		UpdatedAt:          quiz.UpdatedAt,
	}
}

// NewQuizResponseSlice converts a slice of models into DTOs.
func NewQuizResponseSlice(quizzes []models.Quiz) []QuizResponse {
	responses := make([]QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		responses = append(responses, NewQuizResponse(quiz))
	}
	return responses
}

// QuestionOptionResponse is one selectable answer. IsCorrect is omitted for
// students; only staff reviewing results see it.
type QuestionOptionResponse struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionResponse is one question as presented to a quiz taker.
type QuestionResponse struct {
	ID       uint                     `json:"id"`
	Type     models.QuestionType      `json:"type"`
	Prompt   string                   `json:"prompt"`
	Points   float64                  `json:"points"`
	Position int                      `json:"position"`
	Options  []QuestionOptionResponse `json:"options"`
}

// NewQuestionResponse converts a question, stripping correctness flags
// unless the caller is allowed to see them.
func NewQuestionResponse(question models.QuizQuestion, revealCorrect bool) QuestionResponse {
	options := make([]QuestionOptionResponse, 0, len(question.Options))
	for _, option := range question.Options {
		response := QuestionOptionResponse{
			ID:       option.ID,
			Text:     option.Text,
			Position: option.Position,
		}
		if revealCorrect {
			isCorrect := option.IsCorrect
			response.IsCorrect = &isCorrect
		}
		options = append(options, response)
	}

	return QuestionResponse{
		ID:       question.ID,
		Type:     question.Type,
		Prompt:   question.Prompt,
		Points:   question.Points,
		Position: question.Position,
		Options:  options,
	}
}

// NewQuestionResponseSlice converts a slice of questions.
func NewQuestionResponseSlice(questions []models.QuizQuestion, revealCorrect bool) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question, revealCorrect))
	}
	return responses
}
