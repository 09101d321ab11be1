package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	valid := []string{"https://www.youtube.com/watch?v=abc", "http://example.com/v.mp4", "  https://youtu.be/x  "}
	for _, raw := range valid {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) = %v", raw, err)
		}
	}
	invalid := []string{"", "   ", "not a url", "ftp://example.com/a", "file:///etc/passwd", "https://", "/relative/path"}
	for _, raw := range invalid {
		if err := ValidateURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestArgsOrder(t *testing.T) {
	args := Args("https://x.test/v", "/w/job_audio.%(ext)s")
	if args[len(args)-2] != "--" || args[len(args)-1] != "https://x.test/v" {
		t.Fatalf("url must follow --: %v", args)
	}
	for _, flag := range []string{"--no-playlist", "--quiet", "--no-simulate"} {
		if !slices.Contains(args, flag) {
			t.Fatalf("missing %s in %v", flag, args)
		}
	}
}

func TestRetrieveUsesPrintedPath(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "alice", "job1_audio.%(ext)s")
	var gotArgs []string
	r := NewRetriever("")
	r.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != DefaultBinary {
			t.Errorf("binary = %q", name)
		}
		gotArgs = args
		out := filepath.Join(dir, "alice", "job1_audio.webm")
		if err := os.WriteFile(out, []byte("audio"), 0o644); err != nil {
			return nil, err
		}
		return []byte("\n" + out + "\n"), nil
	})

	path, err := r.Retrieve(context.Background(), "https://example.com/watch?v=1", template)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if filepath.Base(path) != "job1_audio.webm" {
		t.Fatalf("path = %q", path)
	}
	if !slices.Contains(gotArgs, template) {
		t.Fatalf("template not passed: %v", gotArgs)
	}
}

func TestRetrieveFallsBackToGlob(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "job2_audio.%(ext)s")
	r := NewRetriever("yt-dlp")
	r.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(dir, "job2_audio.m4a"), []byte("audio"), 0o644)
	})
	path, err := r.Retrieve(context.Background(), "https://example.com/v", template)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if filepath.Base(path) != "job2_audio.m4a" {
		t.Fatalf("path = %q", path)
	}
}

func TestRetrieveRejectsBadURLWithoutRunning(t *testing.T) {
	r := NewRetriever("")
	r.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	})
	_, err := r.Retrieve(context.Background(), "nonsense", filepath.Join(t.TempDir(), "a.%(ext)s"))
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestRetrieveFailures(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "job3_audio.%(ext)s")
	tests := []struct {
		name   string
		runner CommandRunner
		want   string
	}{
		{
			name: "exit error",
			runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return nil, errors.New("exit status 1: ERROR: Video unavailable")
			},
			want: "Video unavailable",
		},
		{
			name: "nothing written",
			runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return nil, nil
			},
			want: "no output file",
		},
		{
			name: "printed path missing",
			runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return []byte(filepath.Join(dir, "ghost.webm")), nil
			},
			want: "downloaded file",
		},
		{
			name: "empty file",
			runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				out := filepath.Join(dir, "job3_audio.opus")
				return []byte(out), os.WriteFile(out, nil, 0o644)
			},
			want: "is empty",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRetriever("")
			r.WithCommandRunner(tc.runner)
			_, err := r.Retrieve(context.Background(), "https://example.com/v", template)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRetrieveRequiresExtPlaceholder(t *testing.T) {
	r := NewRetriever("")
	if _, err := r.Retrieve(context.Background(), "https://example.com/v", filepath.Join(t.TempDir(), "fixed.webm")); err == nil {
		t.Fatal("expected template error")
	}
}

func TestCandidatesMatchesPrefixOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"jobA_audio.webm.part", "jobA_audio.webm", "jobB_audio.webm"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := Candidates(filepath.Join(dir, "jobA_audio.%(ext)s"))
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %v", got)
	}
}
