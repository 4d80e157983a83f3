package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// CourseFilter describes pagination & search options for course listings.
type CourseFilter struct {
	Search       string
	Status       models.CourseStatus
	InstructorID uint
	Page         int
	PageSize     int
}

// CourseRepository defines persistence operations for courses and their
// content modules.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	ListWithFilter(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	ListModules(ctx context.Context, courseID uint) ([]models.CourseModule, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) ListWithFilter(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InstructorID != 0 {
		query = query.Where("instructor_id = ?", filter.InstructorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) ListModules(ctx context.Context, courseID uint) ([]models.CourseModule, error) {
	var modules []models.CourseModule
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("position ASC").Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}
