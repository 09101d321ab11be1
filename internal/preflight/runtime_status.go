package preflight

import (
	"context"
	"strings"

	"clipquiz/internal/config"
	"clipquiz/internal/events"
	"clipquiz/internal/notifications"
)

// CheckEventsFromConfig reports whether the configured NATS server accepts a
// connection. An unset URL reports the feature as disabled.
func CheckEventsFromConfig(cfg *config.Config) Result {
	const name = "NATS events"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	url := strings.TrimSpace(cfg.Events.NATSURL)
	if url == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	pub, err := events.Connect(url, cfg.Events.Subject)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	pub.Close()
	return Result{Name: name, Passed: true, Detail: "Connected to " + url}
}

// CheckNotificationsFromConfig reports the ntfy configuration. When svc is
// non-nil a test notification is published through it.
func CheckNotificationsFromConfig(ctx context.Context, cfg *config.Config, svc notifications.Service) Result {
	const name = "Notifications"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if svc == nil {
		return Result{Name: name, Passed: true, Detail: topic}
	}
	if err := svc.Publish(ctx, notifications.EventTest, nil); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "Test notification sent to " + topic}
}
