package attempt

import (
	"sync"

	"github.com/rs/zerolog"
)

// Runtime is the registry of live attempt sessions. Each session is owned by
// exactly one attempt; detaching a session stops tick delivery for it, which
// is how an abandoned quiz screen is prevented from auto-submitting later.
// The durable attempt row stays in_progress server-side when a session is
// detached without submitting.
type Runtime struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
	logger   zerolog.Logger
}

// NewRuntime builds an empty session registry.
func NewRuntime(logger zerolog.Logger) *Runtime {
	return &Runtime{
		sessions: make(map[uint]*Session),
		logger:   logger.With().Str("component", "attempt_runtime").Logger(),
	}
}

// Attach registers a session under its attempt ID and arms it.
func (r *Runtime) Attach(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session.Begin()
	r.sessions[session.AttemptID()] = session
	r.logger.Debug().Uint("attempt_id", session.AttemptID()).Msg("attempt session attached")
}

// Get returns the live session for an attempt, if one is attached.
func (r *Runtime) Get(attemptID uint) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[attemptID]
	return session, ok
}

// ActiveFor returns the live session a student has on a quiz, if any. The
// business rule disallows two concurrent in-progress attempts by the same
// student on the same quiz.
func (r *Runtime) ActiveFor(quizID, userID uint) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.QuizID() == quizID && session.UserID() == userID && session.State() == StateInProgress {
			return session, true
		}
	}
	return nil, false
}

// Detach removes a session from the registry. No further ticks reach it.
func (r *Runtime) Detach(attemptID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[attemptID]; ok {
		delete(r.sessions, attemptID)
		r.logger.Debug().Uint("attempt_id", attemptID).Msg("attempt session detached")
	}
}

// Len reports the number of attached sessions.
func (r *Runtime) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
