package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/access"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrForbidden indicates the caller's capabilities do not allow the
	// operation. The server decision is authoritative over anything a client
	// predicted locally.
	ErrForbidden = errors.New("forbidden")
)

// CourseService exposes course read use cases gated by the access policy.
type CourseService interface {
	Get(ctx context.Context, caller auth.Context, courseID uint) (dto.CourseResponse, error)
	GetAccess(ctx context.Context, caller auth.Context, courseID uint) (access.CourseAccess, error)
	ListModules(ctx context.Context, caller auth.Context, courseID uint) ([]dto.CourseModuleResponse, error)
	// Authorize resolves the caller's access and enforces a predicate; shared
	// by every course-scoped service.
	Authorize(ctx context.Context, caller auth.Context, courseID uint, predicate access.Predicate) (models.Course, access.CourseAccess, error)
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	cache       *cache.Store
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewCourseService builds a new course service.
func NewCourseService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, cacheStore *cache.Store, cacheTTL time.Duration, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		cache:       cacheStore,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "course_service").Logger(),
	}
}

// Authorize loads the course and the caller's own enrollment, resolves the
// capability set, and evaluates the guard. Not-found is decided before
// forbidden, and a loading state cannot occur here because both lookups have
// completed by the time the guard runs.
func (s *courseService) Authorize(ctx context.Context, caller auth.Context, courseID uint, predicate access.Predicate) (models.Course, access.CourseAccess, error) {
	course, err := s.fetchCourse(ctx, courseID)
	missing := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !missing {
		return models.Course{}, access.CourseAccess{}, err
	}

	enrollment, err := s.enrollments.Find(ctx, courseID, caller.UserID)
	if err != nil {
		return models.Course{}, access.CourseAccess{}, err
	}

	user := models.User{ID: caller.UserID, Role: caller.Role}
	input := access.GuardInput{
		UserLoaded:    true,
		CourseLoaded:  true,
		CourseMissing: missing,
		User:          user,
		Course:        course,
		Enrollment:    enrollment,
	}

	switch access.Evaluate(input, predicate) {
	case access.DecisionNotFound:
		return models.Course{}, access.CourseAccess{}, ErrCourseNotFound
	case access.DecisionForbidden:
		return models.Course{}, access.CourseAccess{}, ErrForbidden
	}

	return course, access.Resolve(user, course, enrollment), nil
}

func (s *courseService) fetchCourse(ctx context.Context, courseID uint) (models.Course, error) {
	var course models.Course
	err := s.cache.Get(ctx, cache.NewEntityKey("course", courseID), s.cacheTTL, &course, func(ctx context.Context) (interface{}, error) {
		return s.courses.GetByID(ctx, courseID)
	})
	if errors.Is(err, cache.ErrKeyIncomplete) {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (s *courseService) Get(ctx context.Context, caller auth.Context, courseID uint) (dto.CourseResponse, error) {
	course, courseAccess, err := s.Authorize(ctx, caller, courseID, func(a access.CourseAccess) bool { return a.CanView })
	if err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course, courseAccess), nil
}

func (s *courseService) GetAccess(ctx context.Context, caller auth.Context, courseID uint) (access.CourseAccess, error) {
	// No predicate: any authenticated user may ask what they can do; the
	// answer may simply be all-false.
	_, courseAccess, err := s.Authorize(ctx, caller, courseID, nil)
	if err != nil {
		return access.CourseAccess{}, err
	}
	return courseAccess, nil
}

func (s *courseService) ListModules(ctx context.Context, caller auth.Context, courseID uint) ([]dto.CourseModuleResponse, error) {
	_, _, err := s.Authorize(ctx, caller, courseID, func(a access.CourseAccess) bool { return a.CanAccessContent })
	if err != nil {
		return nil, err
	}

	var modules []models.CourseModule
	err = s.cache.Get(ctx, cache.NewEntityKey("modules-course", courseID), s.cacheTTL, &modules, func(ctx context.Context) (interface{}, error) {
		return s.courses.ListModules(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewCourseModuleResponseSlice(modules), nil
}
