package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublishEncodesEvent(t *testing.T) {
	fc := &fakeConn{}
	pub := &NATSPublisher{nc: fc, subject: "clipquiz.conversions"}

	err := pub.Publish(context.Background(), Event{
		Type:          TypeCompleted,
		JobID:         "job-1",
		Owner:         "alice",
		SourceURL:     "https://example.com/v",
		QuizTitle:     "Cells",
		QuestionCount: 10,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if fc.subject != "clipquiz.conversions" {
		t.Fatalf("subject = %q", fc.subject)
	}
	var decoded map[string]any
	if err := json.Unmarshal(fc.data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != TypeCompleted || decoded["job_id"] != "job-1" || decoded["question_count"] != float64(10) {
		t.Fatalf("payload = %v", decoded)
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("error should be omitted on success: %v", decoded)
	}

	pub.Close()
	if !fc.drained {
		t.Fatal("Close should drain the connection")
	}
}

func TestPublishPropagatesErrors(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	pub := &NATSPublisher{nc: fc, subject: "s"}
	if err := pub.Publish(context.Background(), Event{Type: TypeFailed}); err == nil {
		t.Fatal("expected publish error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&NATSPublisher{nc: &fakeConn{}, subject: "s"}).Publish(ctx, Event{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNewWithoutURLIsNoop(t *testing.T) {
	pub, err := New("", "subject")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := pub.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", pub)
	}
	if err := pub.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	pub.Close()
}

func TestConnectValidatesArguments(t *testing.T) {
	if _, err := Connect("", "s"); err == nil {
		t.Fatal("expected url error")
	}
	if _, err := Connect("nats://127.0.0.1:4222", " "); err == nil {
		t.Fatal("expected subject error")
	}
}
