package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// QuizRepository defines persistence operations for quizzes and questions.
type QuizRepository interface {
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	GetWithQuestions(ctx context.Context, id uint) (models.Quiz, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Update(ctx context.Context, quiz *models.Quiz) error
	ListQuestions(ctx context.Context, quizID uint) ([]models.QuizQuestion, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) GetWithQuestions(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&quiz, id).Error
	if err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("created_at ASC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Save(quiz).Error
}

func (r *quizRepository) ListQuestions(ctx context.Context, quizID uint) ([]models.QuizQuestion, error) {
	var questions []models.QuizQuestion
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("quiz_id = ?", quizID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
