package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types.
const (
	TypeCompleted = "conversion.completed"
	TypeFailed    = "conversion.failed"
)

// Event is the JSON payload published for each finished conversion.
type Event struct {
	Type          string `json:"type"`
	JobID         string `json:"job_id"`
	Owner         string `json:"owner"`
	SourceURL     string `json:"source_url"`
	QuizTitle     string `json:"quiz_title,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
	Category      string `json:"category,omitempty"`
	Error         string `json:"error,omitempty"`
	CleanupError  string `json:"cleanup_error,omitempty"`
	StartedAt     int64  `json:"started_at"`
	FinishedAt    int64  `json:"finished_at"`
	DurationMS    int64  `json:"duration_ms"`
}

// Publisher emits conversion events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on a single subject.
type NATSPublisher struct {
	nc      conn
	subject string
}

// Connect dials the NATS server at url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	url = strings.TrimSpace(url)
	subject = strings.TrimSpace(subject)
	if url == "" {
		return nil, errors.New("events: nats url required")
	}
	if subject == "" {
		return nil, errors.New("events: subject required")
	}
	nc, err := nats.Connect(url,
		nats.Name("clipquiz"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish encodes event and publishes it. The NATS client buffers writes, so
// ctx is only checked before publishing.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.nc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", event.Type, err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p != nil && p.nc != nil {
		_ = p.nc.Drain()
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() {}

// New returns a NATS publisher when url is set, otherwise a no-op publisher.
func New(url, subject string) (Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return Noop{}, nil
	}
	return Connect(url, subject)
}
