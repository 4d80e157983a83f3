package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// ErrAttemptLimitReached indicates the student has exhausted the quiz's
// allowed attempts. The check runs inside the creation transaction, so the
// count is authoritative even when another session starts concurrently.
var ErrAttemptLimitReached = errors.New("attempt limit reached")

// AttemptRepository defines persistence operations for quiz attempts.
type AttemptRepository interface {
	CreateNext(ctx context.Context, quizID, userID uint, allowedAttempts int) (models.QuizAttempt, error)
	GetByID(ctx context.Context, id uint) (models.QuizAttempt, error)
	GetWithAnswers(ctx context.Context, id uint) (models.QuizAttempt, error)
	ListByQuizAndUser(ctx context.Context, quizID, userID uint) ([]models.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error)
	CountByQuizAndUser(ctx context.Context, quizID, userID uint) (int64, error)
	FinalizeSubmission(ctx context.Context, attempt *models.QuizAttempt, answers []models.QuizAttemptAnswer) error
	UpdateAnswerScore(ctx context.Context, answerID uint, points float64, correct bool) error
	Update(ctx context.Context, attempt *models.QuizAttempt) error
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates a GORM-backed repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

// CreateNext allocates the next attempt for a (quiz, student) pair. Attempt
// numbers are 1-based and strictly increasing. The quiz row is locked for the
// duration of the transaction so concurrent starts serialize on it; under
// read committed an unlocked count-then-insert would let two starts read the
// same count and both pass the cap. The unique index on (quiz_id, user_id,
// attempt_number) rejects duplicate numbers even if the lock is bypassed.
func (r *attemptRepository) CreateNext(ctx context.Context, quizID, userID uint, allowedAttempts int) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var anchor models.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&anchor, quizID).Error; err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.QuizAttempt{}).
			Where("quiz_id = ? AND user_id = ?", quizID, userID).
			Count(&taken).Error; err != nil {
			return err
		}

		if allowedAttempts != models.UnlimitedAttempts && taken >= int64(allowedAttempts) {
			return ErrAttemptLimitReached
		}

		var lastNumber int
		row := tx.Model(&models.QuizAttempt{}).
			Where("quiz_id = ? AND user_id = ?", quizID, userID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Row()
		if err := row.Scan(&lastNumber); err != nil {
			return err
		}

		attempt = models.QuizAttempt{
			QuizID:        quizID,
			UserID:        userID,
			AttemptNumber: lastNumber + 1,
			Status:        models.AttemptStatusInProgress,
			StartedAt:     time.Now().UTC(),
		}
		return tx.Create(&attempt).Error
	})
	if err != nil {
		return models.QuizAttempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) GetWithAnswers(ctx context.Context, id uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).Preload("Answers").First(&attempt, id).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) ListByQuizAndUser(ctx context.Context, quizID, userID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepository) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("user_id ASC, attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepository) CountByQuizAndUser(ctx context.Context, quizID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Count(&count).Error
	return count, err
}

// FinalizeSubmission writes the submitted attempt and its answers in one
// transaction. The attempt row becomes immutable after this point.
func (r *attemptRepository) FinalizeSubmission(ctx context.Context, attempt *models.QuizAttempt, answers []models.QuizAttemptAnswer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(attempt).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *attemptRepository) UpdateAnswerScore(ctx context.Context, answerID uint, points float64, correct bool) error {
	result := r.db.WithContext(ctx).Model(&models.QuizAttemptAnswer{}).
		Where("id = ?", answerID).
		Updates(map[string]interface{}{"points_awarded": points, "is_correct": correct})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attemptRepository) Update(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}
