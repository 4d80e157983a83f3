package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptStatus tracks where an attempt sits in its lifecycle. An attempt is
// immutable once the status leaves in_progress.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusGraded     AttemptStatus = "graded"
)

// QuizAttempt is one instance of a student taking a quiz. AttemptNumber is
// 1-based and strictly increasing per (student, quiz).
type QuizAttempt struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	QuizID        uint                `gorm:"not null;uniqueIndex:idx_quiz_user_attempt" json:"quiz_id"`
	UserID        uint                `gorm:"not null;uniqueIndex:idx_quiz_user_attempt" json:"user_id"`
	AttemptNumber int                 `gorm:"not null;uniqueIndex:idx_quiz_user_attempt" json:"attempt_number"`
	Status        AttemptStatus       `gorm:"size:32;not null;default:'in_progress'" json:"status"`
	StartedAt     time.Time           `gorm:"not null" json:"started_at"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	Score         *float64            `json:"score,omitempty"`
	AutoSubmitted bool                `gorm:"not null;default:false" json:"auto_submitted"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Answers       []QuizAttemptAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// IsOpen reports whether the attempt can still accept answers.
func (a QuizAttempt) IsOpen() bool {
	return a.Status == AttemptStatusInProgress
}

// QuizAttemptAnswer records the student's response to a single question.
// SelectedOptionIDs stores a JSON array of option identifiers for choice
// types; AnswerText carries free-text responses. PointsAwarded and IsCorrect
// stay nil until the answer has been graded.
type QuizAttemptAnswer struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	AttemptID         uint           `gorm:"not null;index" json:"attempt_id"`
	QuestionID        uint           `gorm:"not null" json:"question_id"`
	AnswerText        string         `gorm:"type:text" json:"answer_text"`
	SelectedOptionIDs datatypes.JSON `gorm:"type:json" json:"selected_option_ids"`
	PointsAwarded     *float64       `json:"points_awarded"`
	IsCorrect         *bool          `json:"is_correct"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsPendingReview reports whether a human still has to score the answer.
func (a QuizAttemptAnswer) IsPendingReview() bool {
	return a.PointsAwarded == nil
}
