package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

// StudentDashboardService aggregates a student's enrolled courses with their
// quiz standing in each.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, caller auth.Context) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	quizzes     repository.QuizRepository
	attempts    repository.AttemptRepository
	cache       *cache.Store
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator.
func NewStudentDashboardService(enrollments repository.EnrollmentRepository, courses repository.CourseRepository, quizzes repository.QuizRepository, attempts repository.AttemptRepository, cacheStore *cache.Store, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		enrollments: enrollments,
		courses:     courses,
		quizzes:     quizzes,
		attempts:    attempts,
		cache:       cacheStore,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, caller auth.Context) (dto.StudentDashboardResponse, error) {
	var response dto.StudentDashboardResponse
	err := s.cache.Get(ctx, cache.NewEntityKey("dashboard-student", caller.UserID), s.cacheTTL, &response, func(ctx context.Context) (interface{}, error) {
		return s.buildDashboard(ctx, caller.UserID)
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	return response, nil
}

func (s *studentDashboardService) buildDashboard(ctx context.Context, userID uint) (dto.StudentDashboardResponse, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	courses := make([]dto.CourseProgress, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.Status == models.EnrollmentStatusInactive {
			continue
		}

		course, err := s.courses.GetByID(ctx, enrollment.CourseID)
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}
		if !course.IsPublished() {
			continue
		}

		quizzes, err := s.quizzes.ListByCourse(ctx, course.ID)
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}

		progress := make([]dto.QuizProgress, 0, len(quizzes))
		for _, quiz := range quizzes {
			if !quiz.Published {
				continue
			}

			item, err := s.quizProgress(ctx, quiz, userID)
			if err != nil {
				return dto.StudentDashboardResponse{}, err
			}
			progress = append(progress, item)
		}

		courses = append(courses, dto.CourseProgress{
			CourseID:         course.ID,
			Title:            course.Title,
			EnrollmentStatus: string(enrollment.Status),
			Quizzes:          progress,
		})
	}

	return dto.StudentDashboardResponse{
		GeneratedAt: s.now().UTC(),
		Courses:     courses,
	}, nil
}

func (s *studentDashboardService) quizProgress(ctx context.Context, quiz models.Quiz, userID uint) (dto.QuizProgress, error) {
	attempts, err := s.attempts.ListByQuizAndUser(ctx, quiz.ID, userID)
	if err != nil {
		return dto.QuizProgress{}, err
	}

	var bestScore *float64
	for _, a := range attempts {
		if a.Score == nil {
			continue
		}
		if bestScore == nil || *a.Score > *bestScore {
			score := *a.Score
			bestScore = &score
		}
	}

	taken := len(attempts)
	return dto.QuizProgress{
		QuizID:            quiz.ID,
		Title:             quiz.Title,
		AllowedAttempts:   quiz.AllowedAttempts,
		AttemptsTaken:     taken,
		RemainingAttempts: attempt.RemainingAttempts(quiz.AllowedAttempts, taken),
		StartLabel:        attempt.StartLabel(quiz.AllowedAttempts, taken),
		BestScore:         bestScore,
	}, nil
}
