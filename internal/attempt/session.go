// Package attempt implements the lifecycle of one student's quiz attempt:
// start, per-question answer capture, countdown-driven auto-submit, manual
// submit, and read-only review after submission. The countdown is a logical
// clock advanced through Tick, so the machine is testable without wall-clock
// waits.
package attempt

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// State is the lifecycle position of an attempt session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
)

// Untimed is the remaining-seconds sentinel for quizzes without a time limit.
const Untimed = -1

var (
	// ErrNotInProgress is returned when an operation requires an open attempt.
	ErrNotInProgress = errors.New("attempt is not in progress")
	// ErrNotSubmitting is returned when Retry is called outside a failed submit.
	ErrNotSubmitting = errors.New("attempt has no pending submission")
)

// AnswerDraft is the in-memory response to one question. Drafts live only in
// the session until submit; nothing is persisted per keystroke.
type AnswerDraft struct {
	QuestionID        uint     `json:"question_id"`
	AnswerText        string   `json:"answer_text,omitempty"`
	SelectedOptionIDs []uint   `json:"selected_option_ids,omitempty"`
}

// Submission is the materialized answer set delivered on submit. Answer order
// is not significant: each answer is keyed by question.
type Submission struct {
	AttemptID     uint          `json:"attempt_id"`
	QuizID        uint          `json:"quiz_id"`
	UserID        uint          `json:"user_id"`
	Answers       []AnswerDraft `json:"answers"`
	AutoSubmitted bool          `json:"auto_submitted"`
}

// Submitter delivers a submission to durable storage and grading.
type Submitter interface {
	SubmitAttempt(ctx context.Context, sub Submission) error
}

// Session owns the in-memory state of a single in-progress attempt. The
// answer map is owned exclusively by this session; all operations are
// serialized by the session mutex, which is also what resolves the race
// between a countdown-driven auto-submit and a manual submit: whichever
// acquires the lock first flips the state, the loser sees ErrNotInProgress.
type Session struct {
	mu sync.Mutex

	attemptID uint
	quizID    uint
	userID    uint

	state         State
	answers       map[uint]AnswerDraft
	questionIDs   []uint
	cursor        int
	remaining     int
	autoSubmitted bool

	submitter Submitter
	logger    zerolog.Logger
}

// NewSession builds a session in StateNotStarted. questionIDs fixes the
// navigation order; timeLimitMinutes of zero or less means untimed.
func NewSession(attemptID, quizID, userID uint, questionIDs []uint, timeLimitMinutes int, submitter Submitter, logger zerolog.Logger) *Session {
	remaining := Untimed
	if timeLimitMinutes > 0 {
		remaining = timeLimitMinutes * 60
	}

	ids := make([]uint, len(questionIDs))
	copy(ids, questionIDs)

	return &Session{
		attemptID:   attemptID,
		quizID:      quizID,
		userID:      userID,
		state:       StateNotStarted,
		answers:     make(map[uint]AnswerDraft),
		questionIDs: ids,
		remaining:   remaining,
		submitter:   submitter,
		logger:      logger.With().Str("component", "attempt_session").Uint("attempt_id", attemptID).Logger(),
	}
}

// Begin arms the session. The countdown starts consuming ticks from here on.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateNotStarted {
		s.state = StateInProgress
	}
}

// Answer upserts the draft for a question, overwriting any prior draft. It
// has no effect once the session has started submitting.
func (s *Session) Answer(questionID uint, draft AnswerDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return
	}

	draft.QuestionID = questionID
	s.answers[questionID] = draft
}

// AnswerFor returns the current draft for a question, if any.
func (s *Session) AnswerFor(questionID uint) (AnswerDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.answers[questionID]
	return draft, ok
}

// Tick advances the logical clock by one second. When the countdown reaches
// zero the session force-submits through the same path as a manual submit,
// tagged auto-submitted so results can distinguish "time expired" from
// "student-initiated".
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress || s.remaining == Untimed {
		return nil
	}

	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return nil
	}

	s.autoSubmitted = true
	return s.submitLocked(ctx)
}

// Submit sends the materialized answer map. It rejects calls when the
// session is not in progress, which makes a second submit a no-op and
// guarantees at most one delivery for concurrent submit paths.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}

	return s.submitLocked(ctx)
}

// Retry resends the identical payload after a failed submit. The session
// stays in StateSubmitting across failures so no answers are lost and no
// further edits can sneak in after time may have expired.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting {
		return ErrNotSubmitting
	}

	return s.deliverLocked(ctx)
}

func (s *Session) submitLocked(ctx context.Context) error {
	s.state = StateSubmitting
	return s.deliverLocked(ctx)
}

func (s *Session) deliverLocked(ctx context.Context) error {
	sub := Submission{
		AttemptID:     s.attemptID,
		QuizID:        s.quizID,
		UserID:        s.userID,
		Answers:       s.materializeLocked(),
		AutoSubmitted: s.autoSubmitted,
	}

	if err := s.submitter.SubmitAttempt(ctx, sub); err != nil {
		s.logger.Warn().Err(err).Msg("attempt submission failed, answers retained for retry")
		return err
	}

	s.state = StateCompleted
	s.logger.Info().Bool("auto_submitted", s.autoSubmitted).Int("answers", len(sub.Answers)).Msg("attempt submitted")
	return nil
}

func (s *Session) materializeLocked() []AnswerDraft {
	answers := make([]AnswerDraft, 0, len(s.answers))
	for _, draft := range s.answers {
		answers = append(answers, draft)
	}
	return answers
}

// GoToQuestion moves the navigation cursor, clamped to the question range.
func (s *Session) GoToQuestion(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = clamp(index, 0, len(s.questionIDs)-1)
}

// Next advances the cursor by one, clamped.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = clamp(s.cursor+1, 0, len(s.questionIDs)-1)
}

// Previous moves the cursor back by one, clamped.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = clamp(s.cursor-1, 0, len(s.questionIDs)-1)
}

// Cursor returns the current question index.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

// CurrentQuestionID returns the question at the cursor, or false for an
// empty question list.
func (s *Session) CurrentQuestionID() (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.questionIDs) == 0 {
		return 0, false
	}
	return s.questionIDs[s.cursor], true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// RemainingSeconds returns the countdown value, or Untimed.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remaining
}

// AutoSubmitted reports whether the countdown forced the submission.
func (s *Session) AutoSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.autoSubmitted
}

// AttemptID returns the durable attempt identifier the session fronts.
func (s *Session) AttemptID() uint {
	return s.attemptID
}

// UserID returns the owning student.
func (s *Session) UserID() uint {
	return s.userID
}

// QuizID returns the quiz being attempted.
func (s *Session) QuizID() uint {
	return s.quizID
}

func clamp(value, low, high int) int {
	if high < low {
		return low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
