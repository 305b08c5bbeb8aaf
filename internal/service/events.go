package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event subjects published by the learning core.
const (
	// SubjectSubmissionGraded fires after a submission is graded and closed.
	SubjectSubmissionGraded = "aruna.lms.submission.graded"
	// SubjectCourseCompleted fires after an enrollment reaches completed.
	SubjectCourseCompleted = "aruna.lms.course.completed"
)

// EventPublisher emits domain events. Publication is best effort; callers
// log and continue when it fails.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher wraps a NATS connection as an EventPublisher. A nil
// connection yields a publisher that drops everything silently, which keeps
// local setups working without a broker.
func NewNATSPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

type eventEnvelope struct {
	Subject string      `json:"subject"`
	SentAt  time.Time   `json:"sent_at"`
	Payload interface{} `json:"payload"`
}

func (p *natsPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(eventEnvelope{Subject: subject, SentAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}

	p.logger.Debug().Str("subject", subject).Msg("event published")
	return nil
}
