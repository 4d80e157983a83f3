package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// EnrollmentRepository defines persistence operations for course memberships.
type EnrollmentRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
	Find(ctx context.Context, courseID, userID uint) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, courseID, userID uint, status models.EnrollmentStatus) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates a GORM-backed repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("created_at ASC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Find returns the caller's enrollment for a course, or nil when none
// exists. Absence is not an error: the access resolver distinguishes a
// missing record from an inactive one.
func (r *enrollmentRepository) Find(ctx context.Context, courseID, userID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).Where("course_id = ? AND user_id = ?", courseID, userID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) UpdateStatus(ctx context.Context, courseID, userID uint, status models.EnrollmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
