package service

import (
	"context"
	"errors"
	"math/rand"
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

// ErrQuizNotFound indicates the requested quiz does not exist or is not
// visible to the caller. Unpublished quizzes are reported as missing to
// students rather than as forbidden.
var ErrQuizNotFound = errors.New("quiz not found")

// QuizService exposes quiz read use cases.
type QuizService interface {
	Get(ctx context.Context, caller auth.Context, quizID uint) (dto.QuizResponse, error)
	ListByCourse(ctx context.Context, caller auth.Context, courseID uint) ([]dto.QuizResponse, error)
	ListQuestions(ctx context.Context, caller auth.Context, quizID uint) ([]dto.QuestionResponse, error)
	// Resolve loads a quiz and authorizes the caller against its course,
	// shared with the attempt service.
	Resolve(ctx context.Context, caller auth.Context, quizID uint) (models.Quiz, access.CourseAccess, error)
}

type quizService struct {
	quizzes  repository.QuizRepository
	courses  CourseService
	cache    *cache.Store
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewQuizService builds a new quiz service.
func NewQuizService(quizzes repository.QuizRepository, courses CourseService, cacheStore *cache.Store, cacheTTL time.Duration, logger zerolog.Logger) QuizService {
	return &quizService{
		quizzes:  quizzes,
		courses:  courses,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "quiz_service").Logger(),
	}
}

// Resolve fetches the quiz, then authorizes content access on its course.
// Students additionally only see published quizzes.
func (s *quizService) Resolve(ctx context.Context, caller auth.Context, quizID uint) (models.Quiz, access.CourseAccess, error) {
	var quiz models.Quiz
	err := s.cache.Get(ctx, cache.NewEntityKey("quiz", quizID), s.cacheTTL, &quiz, func(ctx context.Context) (interface{}, error) {
		return s.quizzes.GetByID(ctx, quizID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, cache.ErrKeyIncomplete) {
			return models.Quiz{}, access.CourseAccess{}, ErrQuizNotFound
		}
		return models.Quiz{}, access.CourseAccess{}, err
	}

	_, courseAccess, err := s.courses.Authorize(ctx, caller, quiz.CourseID, func(a access.CourseAccess) bool { return a.CanAccessContent })
	if err != nil {
		return models.Quiz{}, access.CourseAccess{}, err
	}

	if !quiz.Published && !courseAccess.IsOwner {
		return models.Quiz{}, access.CourseAccess{}, ErrQuizNotFound
	}

	return quiz, courseAccess, nil
}

func (s *quizService) Get(ctx context.Context, caller auth.Context, quizID uint) (dto.QuizResponse, error) {
	quiz, _, err := s.Resolve(ctx, caller, quizID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) ListByCourse(ctx context.Context, caller auth.Context, courseID uint) ([]dto.QuizResponse, error) {
	_, courseAccess, err := s.courses.Authorize(ctx, caller, courseID, func(a access.CourseAccess) bool { return a.CanAccessContent })
	if err != nil {
		return nil, err
	}

	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if quiz.Published || courseAccess.IsOwner {
			visible = append(visible, quiz)
		}
	}

	return dto.NewQuizResponseSlice(visible), nil
}

// ListQuestions returns the quiz's questions in presentation order. When the
// quiz shuffles questions or answers, the order is derived from a seed fixed
// per (quiz, student) so a student sees a stable order across reloads while
// different students see different ones. Correctness flags are stripped
// unless the caller owns the course.
func (s *quizService) ListQuestions(ctx context.Context, caller auth.Context, quizID uint) ([]dto.QuestionResponse, error) {
	quiz, courseAccess, err := s.Resolve(ctx, caller, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := s.quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if !courseAccess.IsOwner {
		seed := shuffleSeed(quiz.ID, caller.UserID)
		if quiz.ShuffleQuestions {
			shuffleQuestions(questions, seed)
		}
		if quiz.ShuffleAnswers {
			shuffleOptions(questions, seed)
		}
	}

	return dto.NewQuestionResponseSlice(questions, courseAccess.IsOwner), nil
}

func shuffleSeed(quizID, userID uint) int64 {
	return int64(quizID)<<32 | int64(userID)
}

func shuffleQuestions(questions []models.QuizQuestion, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}

func shuffleOptions(questions []models.QuizQuestion, seed int64) {
	for idx := range questions {
		if !questions[idx].Type.IsChoice() {
			continue
		}
		rng := rand.New(rand.NewSource(seed + int64(questions[idx].ID)))
		options := questions[idx].Options
		rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
	}
}
