package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipquiz/internal/config"
	"clipquiz/internal/services"
)

func TestPrettyHandlerPromotesComponentAndJob(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.With(String(FieldComponent, "ytdlp"), String(FieldJobID, "0123456789abcdef")).
		Info("fetch complete", String("path", "/tmp/a b.m4a"), Int("attempt", 2))

	line := buf.String()
	if !strings.Contains(line, " INFO [01234567] ytdlp: fetch complete") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, `path="/tmp/a b.m4a"`) {
		t.Fatalf("expected quoted path, got %q", line)
	}
	if !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attempt attr, got %q", line)
	}
	if strings.Contains(line, "component=") || strings.Contains(line, "job_id=") {
		t.Fatalf("promoted fields should not repeat: %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestPrettyHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))
	logger.WithGroup("quiz").Info("parsed", Int("questions", 10))
	if !strings.Contains(buf.String(), "quiz.questions=10") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	handler, err := newJSONHandler(&buf, new(slog.LevelVar), false)
	if err != nil {
		t.Fatalf("newJSONHandler: %v", err)
	}
	slog.New(handler).Info("hello", String(FieldStage, "fetching"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["msg"] != "hello" || payload["level"] != "info" || payload[FieldStage] != "fetching" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key: %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Logging.Format = "json"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("written")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "clipquiz.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithOwner(ctx, "alice")
	ctx = services.WithStage(ctx, "transcoding")
	ctx = services.WithRequestID(ctx, "req-9")

	WithContext(ctx, base).Info("stage")
	out := buf.String()
	for _, want := range []string{"[job-1]", "owner=alice", "stage=transcoding", "correlation_id=req-9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	WarnWithContext(logger, "cleanup failed", "workspace_cleanup_failed", Error(errors.New("busy")), String(FieldImpact, "files left behind"))
	out := buf.String()
	for _, want := range []string{"event_type=workspace_cleanup_failed", `error_hint="check logs for details"`, `impact="files left behind"`, "error=busy"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should be disabled")
	}
	NewComponentLogger(nil, "x").Info("ignored")
}
