package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultBinary is the ffmpeg executable name resolved from PATH.
const DefaultBinary = "ffmpeg"

const (
	sampleRate = "16000"
	channels   = "1"
	codec      = "pcm_s16le"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Transcoder wraps ffmpeg.
type Transcoder struct {
	binary string
	runner CommandRunner
}

// NewTranscoder constructs a transcoder for the given binary (defaults to ffmpeg).
func NewTranscoder(binary string) *Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Transcoder{binary: binary, runner: execRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		t.runner = runner
	}
}

// Args returns the ffmpeg arguments that convert source into a mono 16 kHz WAV.
func Args(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", channels,
		"-ar", sampleRate,
		"-c:a", codec,
		dest,
	}
}

// Transcode converts source into a mono 16 kHz PCM WAV at dest, overwriting
// any existing file.
func (t *Transcoder) Transcode(ctx context.Context, source, dest string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("ffmpeg transcode: source and destination required")
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("ffmpeg transcode: stat source: %w", err)
	}
	if err := t.runner(ctx, t.binary, Args(source, dest)...); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("ffmpeg transcode: output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg transcode: output %s is empty", dest)
	}
	return nil
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
