package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clipquiz/internal/logging"
)

// Workspace is one job's view of its owner's scratch directory.
type Workspace struct {
	Owner string
	JobID string
	Dir   string

	mu      sync.Mutex
	tracked []string
	release func() error
	once    sync.Once
	err     error
	logger  *slog.Logger
}

// Ensure creates the owner directory if needed.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create %s: %w", w.Dir, err)
	}
	return nil
}

// Path returns a job-scoped file path inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, w.JobID+"_"+name)
}

// OutputTemplate returns the yt-dlp output template for the job's download.
func (w *Workspace) OutputTemplate() string {
	return w.Path("audio.%(ext)s")
}

// Track records paths as artifacts to delete on Release. Paths outside the
// workspace directory are ignored.
func (w *Workspace) Track(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if !w.contains(clean) {
			continue
		}
		duplicate := false
		for _, existing := range w.tracked {
			if existing == clean {
				duplicate = true
				break
			}
		}
		if !duplicate {
			w.tracked = append(w.tracked, clean)
		}
	}
}

// TrackJobFiles tracks every file in the workspace whose name carries the
// job's prefix, which picks up partial downloads left by a failed fetch.
func (w *Workspace) TrackJobFiles() error {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("workspace: scan %s: %w", w.Dir, err)
	}
	prefix := w.JobID + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		w.Track(filepath.Join(w.Dir, entry.Name()))
	}
	return nil
}

// Tracked returns a copy of the tracked artifact paths.
func (w *Workspace) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.tracked))
	copy(out, w.tracked)
	return out
}

func (w *Workspace) contains(path string) bool {
	rel, err := filepath.Rel(w.Dir, path)
	if err != nil {
		return false
	}
	return rel != "." && filepath.IsLocal(rel)
}

// Release deletes every tracked artifact that exists, removes the owner
// directory when it is empty, and releases the owner lock. Deletion errors do
// not stop the remaining steps; they are joined into the returned error.
// Calling Release more than once returns the first result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		w.err = w.cleanup()
	})
	return w.err
}

func (w *Workspace) cleanup() error {
	var errs []error
	removed := 0

	for _, path := range w.Tracked() {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}

	dirRemoved, err := removeIfEmpty(w.Dir)
	if err != nil {
		errs = append(errs, err)
	}

	if w.release != nil {
		if err := w.release(); err != nil {
			errs = append(errs, err)
		}
	}

	cleanupErr := errors.Join(errs...)
	if w.logger != nil {
		if cleanupErr != nil {
			logging.WarnWithContext(w.logger, "workspace cleanup incomplete", "workspace_cleanup_failed",
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "remove leftover files manually or run clipquiz workspace clean"),
				logging.String(logging.FieldImpact, "transient audio left on disk"),
			)
		} else {
			w.logger.Debug("workspace released",
				logging.Int("files_removed", removed),
				logging.Bool("dir_removed", dirRemoved),
				logging.String(logging.FieldEventType, "workspace_released"),
			)
		}
	}
	return cleanupErr
}

func removeIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", dir, err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove %s: %w", dir, err)
	}
	return true, nil
}
