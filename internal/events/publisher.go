// Package events publishes domain lifecycle events to NATS so downstream
// consumers (notification fan-out, analytics) can react without coupling to
// the HTTP service.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects published by this service.
const (
	SubjectAnnouncementCreated = "coursekit.announcements.created"
	SubjectAttemptSubmitted    = "coursekit.attempts.submitted"
	SubjectAttemptGraded       = "coursekit.attempts.graded"
	SubjectEnrollmentChanged   = "coursekit.enrollments.changed"
)

// Envelope wraps every published event.
type Envelope struct {
	ID         string      `json:"id"`
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher delivers domain events. A nil NATS connection degrades to a
// logged no-op so local development does not require a broker.
type Publisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewPublisher builds a publisher over an established NATS connection.
func NewPublisher(conn *nats.Conn, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends one event. Delivery is best-effort: a broker failure is
// logged, never surfaced to the request path.
func (p *Publisher) Publish(subject string, payload interface{}) {
	envelope := Envelope{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if p.conn == nil {
		p.logger.Debug().Str("subject", subject).Msg("event dropped, no broker configured")
		return
	}

	if err := p.conn.Publish(subject, encoded); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// AttemptSubmittedEvent is the payload for SubjectAttemptSubmitted.
type AttemptSubmittedEvent struct {
	AttemptID     uint `json:"attempt_id"`
	QuizID        uint `json:"quiz_id"`
	UserID        uint `json:"user_id"`
	AttemptNumber int  `json:"attempt_number"`
	AutoSubmitted bool `json:"auto_submitted"`
}

// AnnouncementCreatedEvent is the payload for SubjectAnnouncementCreated.
type AnnouncementCreatedEvent struct {
	AnnouncementID uint   `json:"announcement_id"`
	CourseID       uint   `json:"course_id"`
	AuthorID       uint   `json:"author_id"`
	Title          string `json:"title"`
}

// EnrollmentChangedEvent is the payload for SubjectEnrollmentChanged.
type EnrollmentChangedEvent struct {
	CourseID uint   `json:"course_id"`
	UserID   uint   `json:"user_id"`
	Status   string `json:"status"`
}
