package models

import "time"

// UnlimitedAttempts is the AllowedAttempts sentinel for quizzes with no cap.
const UnlimitedAttempts = -1

// QuestionType discriminates how a question is answered and graded.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionFillInBlank    QuestionType = "fill_in_blank"
)

// IsChoice reports whether the question is answered by selecting options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// Quiz is an assessment attached to a course.
type Quiz struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CourseID           uint           `gorm:"not null;index" json:"course_id"`
	Title              string         `gorm:"size:255;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	AllowedAttempts    int            `gorm:"not null;default:-1" json:"allowed_attempts"`
	TimeLimitMinutes   int            `gorm:"not null;default:0" json:"time_limit_minutes"`
	ShuffleQuestions   bool           `gorm:"not null;default:false" json:"shuffle_questions"`
	ShuffleAnswers     bool           `gorm:"not null;default:false" json:"shuffle_answers"`
	ShowCorrectAnswers bool           `gorm:"not null;default:true" json:"show_correct_answers"`
	Published          bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Questions          []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

// IsTimed reports whether attempts run against a countdown.
func (q Quiz) IsTimed() bool {
	return q.TimeLimitMinutes > 0
}

// HasAttemptLimit reports whether the attempt cap applies.
func (q Quiz) HasAttemptLimit() bool {
	return q.AllowedAttempts != UnlimitedAttempts
}

// QuizQuestion belongs to a quiz and carries ordered answer options for
// choice types.
type QuizQuestion struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	QuizID    uint             `gorm:"not null;index" json:"quiz_id"`
	Type      QuestionType     `gorm:"size:32;not null" json:"type"`
	Prompt    string           `gorm:"type:text;not null" json:"prompt"`
	Points    float64          `gorm:"not null;default:1" json:"points"`
	Position  int              `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Options   []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// CorrectOptionIDs returns the identifiers of options flagged correct.
func (q QuizQuestion) CorrectOptionIDs() []uint {
	ids := make([]uint, 0, len(q.Options))
	for _, option := range q.Options {
		if option.IsCorrect {
			ids = append(ids, option.ID)
		}
	}
	return ids
}

// QuestionOption is one selectable answer for a choice-type question.
type QuestionOption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Text       string    `gorm:"size:1024;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
