package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBinary is the yt-dlp executable name resolved from PATH.
const DefaultBinary = "yt-dlp"

// ErrInvalidURL marks a source URL rejected before any download is attempted.
var ErrInvalidURL = errors.New("invalid source url")

// CommandRunner executes a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Retriever downloads audio via yt-dlp.
type Retriever struct {
	binary string
	runner CommandRunner
}

// NewRetriever constructs a retriever for the given binary (defaults to yt-dlp).
func NewRetriever(binary string) *Retriever {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Retriever{binary: binary, runner: execRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Retriever) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		r.runner = runner
	}
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Args returns the yt-dlp arguments for a single-video audio download.
func Args(sourceURL, outputTemplate string) []string {
	return []string{
		"--format", "bestaudio/best",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-progress",
		"--no-simulate",
		"--print", "after_move:filepath",
		"--output", outputTemplate,
		"--",
		sourceURL,
	}
}

// Retrieve downloads the audio for sourceURL using outputTemplate (which must
// contain the %(ext)s placeholder) and returns the path of the written file.
func (r *Retriever) Retrieve(ctx context.Context, sourceURL, outputTemplate string) (string, error) {
	if err := ValidateURL(sourceURL); err != nil {
		return "", err
	}
	if !strings.Contains(outputTemplate, "%(ext)s") {
		return "", fmt.Errorf("yt-dlp: output template %q lacks %%(ext)s", outputTemplate)
	}
	if err := os.MkdirAll(filepath.Dir(outputTemplate), 0o755); err != nil {
		return "", fmt.Errorf("yt-dlp: ensure output dir: %w", err)
	}

	stdout, runErr := r.runner(ctx, r.binary, Args(strings.TrimSpace(sourceURL), outputTemplate)...)
	if runErr != nil {
		return "", fmt.Errorf("yt-dlp: %w", runErr)
	}

	path := lastLine(stdout)
	if path == "" {
		found, err := globTemplate(outputTemplate)
		if err != nil {
			return "", err
		}
		path = found
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: downloaded file: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return "", fmt.Errorf("yt-dlp: downloaded file %s is empty", path)
	}
	return path, nil
}

// Candidates lists files on disk that match the output template. Callers use
// it to track partial downloads left behind by a failed run.
func Candidates(outputTemplate string) []string {
	prefix := strings.SplitN(outputTemplate, "%(ext)s", 2)[0]
	matches, err := filepath.Glob(escapeGlob(prefix) + "*")
	if err != nil {
		return nil
	}
	return matches
}

func globTemplate(outputTemplate string) (string, error) {
	matches := Candidates(outputTemplate)
	switch len(matches) {
	case 0:
		return "", errors.New("yt-dlp: no output file reported or found")
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("yt-dlp: ambiguous output, %d files match", len(matches))
	}
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return stdout.Bytes(), err
		}
		return stdout.Bytes(), fmt.Errorf("%w: %s", err, detail)
	}
	return stdout.Bytes(), nil
}
