package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/events"
	"github.com/coursekit/coursekit-go-api/internal/grading"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/observability"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

var (
	// ErrAttemptNotFound indicates the attempt does not exist or the caller
	// may not see it.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptInProgress indicates the student already has a live session
	// on this quiz.
	ErrAttemptInProgress = errors.New("an attempt is already in progress")
	// ErrAttemptLimitExceeded indicates allowed attempts are exhausted. The
	// server count is authoritative; clients pre-filtering on a stale count
	// must reconcile against the count carried by AttemptLimitError.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	// ErrNoLiveSession indicates the attempt has no attached session, e.g.
	// after a service restart or once the attempt completed.
	ErrNoLiveSession = errors.New("attempt has no live session")
)

// AttemptLimitError carries the authoritative attempt count alongside
// ErrAttemptLimitExceeded so clients can reconcile their stale local hint.
type AttemptLimitError struct {
	Allowed int
	Taken   int
}

func (e *AttemptLimitError) Error() string {
	return fmt.Sprintf("attempt limit exceeded: %d of %d attempts used", e.Taken, e.Allowed)
}

// Unwrap ties the typed error to the sentinel.
func (e *AttemptLimitError) Unwrap() error {
	return ErrAttemptLimitExceeded
}

// AllowanceResponse is the client-side start-affordance hint. The server
// recounts inside the start transaction regardless.
type AllowanceResponse struct {
	AllowedAttempts   int    `json:"allowed_attempts"`
	AttemptsTaken     int    `json:"attempts_taken"`
	RemainingAttempts int    `json:"remaining_attempts"`
	StartLabel        string `json:"start_label"`
}

// AttemptService drives the quiz attempt lifecycle.
type AttemptService interface {
	Start(ctx context.Context, caller auth.Context, quizID uint) (dto.AttemptResponse, error)
	CaptureAnswer(ctx context.Context, caller auth.Context, attemptID, questionID uint, payload dto.AnswerRequest) error
	Submit(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResponse, error)
	Retry(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResponse, error)
	Results(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResultsResponse, error)
	ListOwn(ctx context.Context, caller auth.Context, quizID uint) ([]dto.AttemptResponse, error)
	ListAll(ctx context.Context, caller auth.Context, quizID uint) ([]dto.AttemptResponse, error)
	Allowance(ctx context.Context, caller auth.Context, quizID uint) (AllowanceResponse, error)
	ScoreAnswer(ctx context.Context, caller auth.Context, attemptID, answerID uint, points float64, correct bool) (dto.AttemptResponse, error)
	Session(caller auth.Context, attemptID uint) (*attempt.Session, error)
	Detach(attemptID uint)
}

type attemptService struct {
	attempts  repository.AttemptRepository
	quizzes   repository.QuizRepository
	quizSvc   QuizService
	runtime   *attempt.Runtime
	cache     *cache.Store
	publisher *events.Publisher
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAttemptService builds the attempt lifecycle service.
func NewAttemptService(attempts repository.AttemptRepository, quizzes repository.QuizRepository, quizSvc QuizService, runtime *attempt.Runtime, cacheStore *cache.Store, publisher *events.Publisher, logger zerolog.Logger) AttemptService {
	return &attemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		quizSvc:   quizSvc,
		runtime:   runtime,
		cache:     cacheStore,
		publisher: publisher,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/coursekit/coursekit-go-api/internal/service/attempt"),
		logger:    logger.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// Start creates the next attempt for the caller and attaches a live session.
// The attempt-limit check runs inside the creation transaction, so a stale
// client-side count can never push the stored attempt count over the cap.
func (s *attemptService) Start(ctx context.Context, caller auth.Context, quizID uint) (dto.AttemptResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "attempts.start", trace.WithAttributes(
		attribute.Int64("quiz.id", int64(quizID)),
		attribute.Int64("user.id", int64(caller.UserID)),
	))
	defer span.End()

	quiz, _, err := s.quizSvc.Resolve(spanCtx, caller, quizID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	if _, live := s.runtime.ActiveFor(quizID, caller.UserID); live {
		return dto.AttemptResponse{}, ErrAttemptInProgress
	}

	created, err := s.attempts.CreateNext(spanCtx, quizID, caller.UserID, quiz.AllowedAttempts)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptLimitReached) {
			// Reconcile: report the authoritative count so the caller can
			// refresh its stale hint.
			taken, countErr := s.attempts.CountByQuizAndUser(spanCtx, quizID, caller.UserID)
			if countErr != nil {
				taken = int64(quiz.AllowedAttempts)
			}
			return dto.AttemptResponse{}, &AttemptLimitError{Allowed: quiz.AllowedAttempts, Taken: int(taken)}
		}
		return dto.AttemptResponse{}, err
	}

	questionIDs, err := s.presentationOrder(spanCtx, quiz, caller.UserID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	session := attempt.NewSession(created.ID, quizID, caller.UserID, questionIDs, quiz.TimeLimitMinutes, s.submitter(), s.logger)
	s.runtime.Attach(session)
	observability.AttemptSessions().Inc()

	s.logger.Info().
		Uint("attempt_id", created.ID).
		Uint("quiz_id", quizID).
		Int("attempt_number", created.AttemptNumber).
		Msg("attempt started")

	remaining := session.RemainingSeconds()
	var remainingPtr *int
	if remaining != attempt.Untimed {
		remainingPtr = &remaining
	}
	return dto.NewAttemptResponse(created, remainingPtr), nil
}

// presentationOrder mirrors the question order the student sees, including
// per-student shuffling, so the session cursor aligns with the rendered quiz.
func (s *attemptService) presentationOrder(ctx context.Context, quiz models.Quiz, userID uint) ([]uint, error) {
	questions, err := s.quizzes.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	if quiz.ShuffleQuestions {
		shuffleQuestions(questions, shuffleSeed(quiz.ID, userID))
	}

	ids := make([]uint, 0, len(questions))
	for _, question := range questions {
		ids = append(ids, question.ID)
	}
	return ids, nil
}

func (s *attemptService) CaptureAnswer(ctx context.Context, caller auth.Context, attemptID, questionID uint, payload dto.AnswerRequest) error {
	session, err := s.Session(caller, attemptID)
	if err != nil {
		return err
	}

	draft := payload.NewAnswerDraft(questionID)
	draft.AnswerText = strings.TrimSpace(s.sanitizer.Sanitize(draft.AnswerText))
	session.Answer(questionID, draft)
	return nil
}

func (s *attemptService) Submit(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "attempts.submit", trace.WithAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
	))
	defer span.End()

	session, err := s.Session(caller, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	if err := session.Submit(spanCtx); err != nil {
		return dto.AttemptResponse{}, err
	}

	return s.completed(spanCtx, session)
}

func (s *attemptService) Retry(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResponse, error) {
	session, err := s.Session(caller, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	if err := session.Retry(ctx); err != nil {
		return dto.AttemptResponse{}, err
	}

	return s.completed(ctx, session)
}

func (s *attemptService) completed(ctx context.Context, session *attempt.Session) (dto.AttemptResponse, error) {
	s.runtime.Detach(session.AttemptID())
	observability.AttemptSessions().Dec()

	stored, err := s.attempts.GetByID(ctx, session.AttemptID())
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	return dto.NewAttemptResponse(stored, nil), nil
}

// Session returns the live session for an attempt, enforcing that only the
// owning student touches it.
func (s *attemptService) Session(caller auth.Context, attemptID uint) (*attempt.Session, error) {
	session, ok := s.runtime.Get(attemptID)
	if !ok {
		return nil, ErrNoLiveSession
	}
	if session.UserID() != caller.UserID {
		return nil, ErrAttemptNotFound
	}
	return session, nil
}

// Detach tears down the live session without submitting. The stored attempt
// stays in_progress; no further ticks can reach the session.
func (s *attemptService) Detach(attemptID uint) {
	if _, ok := s.runtime.Get(attemptID); ok {
		s.runtime.Detach(attemptID)
		observability.AttemptSessions().Dec()
	}
}

// submitter returns the persistence half of the state machine: grading the
// materialized answers and finalizing the attempt row atomically.
func (s *attemptService) submitter() attempt.Submitter {
	return submitterFunc(func(ctx context.Context, sub attempt.Submission) error {
		questions, err := s.quizzes.ListQuestions(ctx, sub.QuizID)
		if err != nil {
			return err
		}

		questionsByID := make(map[uint]models.QuizQuestion, len(questions))
		for _, question := range questions {
			questionsByID[question.ID] = question
		}

		results := make(map[uint]grading.Result, len(sub.Answers))
		answers := make([]models.QuizAttemptAnswer, 0, len(sub.Answers))
		for _, draft := range sub.Answers {
			question, known := questionsByID[draft.QuestionID]
			if !known {
				continue
			}

			result := grading.Grade(question, draft.SelectedOptionIDs, draft.AnswerText)
			results[draft.QuestionID] = result

			answer := models.QuizAttemptAnswer{
				QuestionID:    draft.QuestionID,
				AnswerText:    draft.AnswerText,
				PointsAwarded: result.PointsAwarded,
				IsCorrect:     result.IsCorrect,
			}
			if len(draft.SelectedOptionIDs) > 0 {
				encoded, marshalErr := json.Marshal(draft.SelectedOptionIDs)
				if marshalErr != nil {
					return marshalErr
				}
				answer.SelectedOptionIDs = encoded
			}
			answers = append(answers, answer)
		}

		summary := grading.Summarize(questions, results)

		stored, err := s.attempts.GetByID(ctx, sub.AttemptID)
		if err != nil {
			return err
		}
		if !stored.IsOpen() {
			// The attempt is immutable once submitted; a duplicate delivery
			// must not rewrite it.
			return nil
		}

		submittedAt := s.now().UTC()
		stored.SubmittedAt = &submittedAt
		stored.AutoSubmitted = sub.AutoSubmitted
		stored.Score = &summary.Score
		if summary.PendingReview {
			stored.Status = models.AttemptStatusSubmitted
		} else {
			stored.Status = models.AttemptStatusGraded
		}

		err = s.cache.Mutate(ctx, func(ctx context.Context) error {
			return s.attempts.FinalizeSubmission(ctx, &stored, answers)
		}, cache.NewEntityKey("quiz-attempts", sub.QuizID), cache.NewEntityKey("dashboard-student", sub.UserID))
		if err != nil {
			return err
		}

		mode := observability.SubmissionModeManual
		if sub.AutoSubmitted {
			mode = observability.SubmissionModeAuto
		}
		observability.QuizSubmissions().WithLabelValues(mode).Inc()

		s.publisher.Publish(events.SubjectAttemptSubmitted, events.AttemptSubmittedEvent{
			AttemptID:     stored.ID,
			QuizID:        stored.QuizID,
			UserID:        stored.UserID,
			AttemptNumber: stored.AttemptNumber,
			AutoSubmitted: stored.AutoSubmitted,
		})
		return nil
	})
}

type submitterFunc func(ctx context.Context, sub attempt.Submission) error

func (f submitterFunc) SubmitAttempt(ctx context.Context, sub attempt.Submission) error {
	return f(ctx, sub)
}

func (s *attemptService) Results(ctx context.Context, caller auth.Context, attemptID uint) (dto.AttemptResultsResponse, error) {
	stored, err := s.attempts.GetWithAnswers(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResultsResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptResultsResponse{}, err
	}

	quiz, courseAccess, err := s.quizSvc.Resolve(ctx, caller, stored.QuizID)
	if err != nil {
		return dto.AttemptResultsResponse{}, err
	}

	if stored.UserID != caller.UserID && !courseAccess.IsOwner {
		return dto.AttemptResultsResponse{}, ErrAttemptNotFound
	}

	revealCorrect := courseAccess.IsOwner || quiz.ShowCorrectAnswers
	return dto.NewAttemptResultsResponse(stored, revealCorrect), nil
}

func (s *attemptService) ListOwn(ctx context.Context, caller auth.Context, quizID uint) ([]dto.AttemptResponse, error) {
	if _, _, err := s.quizSvc.Resolve(ctx, caller, quizID); err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByQuizAndUser(ctx, quizID, caller.UserID)
	if err != nil {
		return nil, err
	}
	return dto.NewAttemptResponseSlice(attempts), nil
}

// ListAll returns every student's attempts. The capability gate runs here,
// server-side: a client that merely hid the affordance is not trusted.
func (s *attemptService) ListAll(ctx context.Context, caller auth.Context, quizID uint) ([]dto.AttemptResponse, error) {
	_, courseAccess, err := s.quizSvc.Resolve(ctx, caller, quizID)
	if err != nil {
		return nil, err
	}
	if !courseAccess.IsOwner {
		return nil, ErrForbidden
	}

	var attempts []models.QuizAttempt
	err = s.cache.Get(ctx, cache.NewEntityKey("quiz-attempts", quizID), time.Minute, &attempts, func(ctx context.Context) (interface{}, error) {
		return s.attempts.ListByQuiz(ctx, quizID)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAttemptResponseSlice(attempts), nil
}

func (s *attemptService) Allowance(ctx context.Context, caller auth.Context, quizID uint) (AllowanceResponse, error) {
	quiz, _, err := s.quizSvc.Resolve(ctx, caller, quizID)
	if err != nil {
		return AllowanceResponse{}, err
	}

	taken, err := s.attempts.CountByQuizAndUser(ctx, quizID, caller.UserID)
	if err != nil {
		return AllowanceResponse{}, err
	}

	return AllowanceResponse{
		AllowedAttempts:   quiz.AllowedAttempts,
		AttemptsTaken:     int(taken),
		RemainingAttempts: attempt.RemainingAttempts(quiz.AllowedAttempts, int(taken)),
		StartLabel:        attempt.StartLabel(quiz.AllowedAttempts, int(taken)),
	}, nil
}

// ScoreAnswer records a manual grade for a free-text answer. When the last
// pending answer receives points the attempt transitions to graded.
func (s *attemptService) ScoreAnswer(ctx context.Context, caller auth.Context, attemptID, answerID uint, points float64, correct bool) (dto.AttemptResponse, error) {
	stored, err := s.attempts.GetWithAnswers(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptResponse{}, err
	}

	_, courseAccess, err := s.quizSvc.Resolve(ctx, caller, stored.QuizID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	if !courseAccess.IsOwner {
		return dto.AttemptResponse{}, ErrForbidden
	}

	if err := s.attempts.UpdateAnswerScore(ctx, answerID, points, correct); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptResponse{}, err
	}

	refreshed, err := s.attempts.GetWithAnswers(ctx, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	total := 0.0
	pending := false
	for _, answer := range refreshed.Answers {
		if answer.IsPendingReview() {
			pending = true
			continue
		}
		total += *answer.PointsAwarded
	}

	refreshed.Score = &total
	if !pending {
		refreshed.Status = models.AttemptStatusGraded
	}

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.attempts.Update(ctx, &refreshed)
	}, cache.NewEntityKey("quiz-attempts", refreshed.QuizID), cache.NewEntityKey("dashboard-student", refreshed.UserID))
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	if !pending {
		s.publisher.Publish(events.SubjectAttemptGraded, events.AttemptSubmittedEvent{
			AttemptID:     refreshed.ID,
			QuizID:        refreshed.QuizID,
			UserID:        refreshed.UserID,
			AttemptNumber: refreshed.AttemptNumber,
			AutoSubmitted: refreshed.AutoSubmitted,
		})
	}

	return dto.NewAttemptResponse(refreshed, nil), nil
}
