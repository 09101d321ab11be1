package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	args := Args("in.webm", "out.wav")
	want := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "in.webm", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", "out.wav"}
	if !slices.Equal(args, want) {
		t.Fatalf("args = %v", args)
	}
}

func TestTranscodeSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "job_audio.webm")
	dest := filepath.Join(dir, "job_audio_norm.wav")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	tc := NewTranscoder("/opt/ffmpeg")
	var gotName string
	tc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	})
	if err := tc.Transcode(context.Background(), src, dest); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if gotName != "/opt/ffmpeg" {
		t.Fatalf("binary = %q", gotName)
	}
}

func TestTranscodeFailures(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.webm")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out.wav")

	tc := NewTranscoder("")
	tc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1: Invalid data found when processing input")
	})
	err := tc.Transcode(context.Background(), src, dest)
	if err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected stderr in error, got %v", err)
	}

	tc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error { return nil })
	if err := tc.Transcode(context.Background(), src, dest); err == nil {
		t.Fatal("expected missing output error")
	}

	if err := tc.Transcode(context.Background(), filepath.Join(dir, "missing.webm"), dest); err == nil {
		t.Fatal("expected missing source error")
	}
}
