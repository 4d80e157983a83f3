package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/access"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/events"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

var (
	// ErrAlreadyEnrolled indicates an enrollment record already exists for
	// the (course, user) pair, whatever its status.
	ErrAlreadyEnrolled = errors.New("user already enrolled")
	// ErrEnrollmentNotFound indicates no membership record exists.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// EnrollmentService exposes course membership use cases.
type EnrollmentService interface {
	List(ctx context.Context, caller auth.Context, courseID uint) ([]dto.EnrollmentResponse, error)
	Enroll(ctx context.Context, caller auth.Context, courseID uint, payload dto.EnrollRequest) (dto.EnrollmentResponse, error)
	Deactivate(ctx context.Context, caller auth.Context, courseID, userID uint) error
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	courses     CourseService
	cache       *cache.Store
	cacheTTL    time.Duration
	validator   *validator.Validate
	publisher   *events.Publisher
	logger      zerolog.Logger
}

// NewEnrollmentService builds a new enrollment service.
func NewEnrollmentService(enrollments repository.EnrollmentRepository, courses CourseService, cacheStore *cache.Store, cacheTTL time.Duration, validate *validator.Validate, publisher *events.Publisher, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		courses:     courses,
		cache:       cacheStore,
		cacheTTL:    cacheTTL,
		validator:   validate,
		publisher:   publisher,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
	}
}

func canEnroll(a access.CourseAccess) bool { return a.CanEnrollUsers }

func (s *enrollmentService) List(ctx context.Context, caller auth.Context, courseID uint) ([]dto.EnrollmentResponse, error) {
	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canEnroll); err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	err := s.cache.Get(ctx, cache.NewEntityKey("course-enrollments", courseID), s.cacheTTL, &enrollments, func(ctx context.Context) (interface{}, error) {
		return s.enrollments.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) Enroll(ctx context.Context, caller auth.Context, courseID uint, payload dto.EnrollRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canEnroll); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	existing, err := s.enrollments.Find(ctx, courseID, payload.UserID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if existing != nil {
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	}

	enrollment := models.Enrollment{
		CourseID: courseID,
		UserID:   payload.UserID,
		Status:   models.EnrollmentStatusActive,
	}

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.enrollments.Create(ctx, &enrollment)
	}, cache.NewEntityKey("course-enrollments", courseID), cache.NewEntityKey("dashboard-student", payload.UserID))
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("user_id", payload.UserID).Msg("user enrolled")
	s.publisher.Publish(events.SubjectEnrollmentChanged, events.EnrollmentChangedEvent{
		CourseID: courseID,
		UserID:   payload.UserID,
		Status:   string(models.EnrollmentStatusActive),
	})

	return dto.NewEnrollmentResponse(enrollment), nil
}

// Deactivate cancels a membership. The record is kept with status inactive
// so history stays attributable; it is never deleted.
func (s *enrollmentService) Deactivate(ctx context.Context, caller auth.Context, courseID, userID uint) error {
	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canEnroll); err != nil {
		return err
	}

	err := s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.enrollments.UpdateStatus(ctx, courseID, userID, models.EnrollmentStatusInactive)
	}, cache.NewEntityKey("course-enrollments", courseID), cache.NewEntityKey("dashboard-student", userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("user_id", userID).Msg("enrollment deactivated")
	s.publisher.Publish(events.SubjectEnrollmentChanged, events.EnrollmentChangedEvent{
		CourseID: courseID,
		UserID:   userID,
		Status:   string(models.EnrollmentStatusInactive),
	})
	return nil
}
