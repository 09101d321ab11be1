package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"clipquiz/internal/logging"
)

const (
	lockDirName    = ".locks"
	lockRetryDelay = 100 * time.Millisecond
)

// Manager hands out per-owner workspaces under a shared root.
type Manager struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	owners map[string]chan struct{}
}

// NewManager constructs a workspace manager rooted at root.
func NewManager(root string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   filepath.Clean(root),
		logger: logging.NewComponentLogger(logger, "workspace"),
		owners: make(map[string]chan struct{}),
	}
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// OwnerDir returns the directory used for owner without locking it.
func (m *Manager) OwnerDir(owner string) (string, error) {
	name, err := SanitizeOwner(owner)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.root, name), nil
}

// Acquire blocks until the owner's workspace is free (or ctx ends) and returns
// a Workspace for jobID. The owner directory is not created until Ensure.
func (m *Manager) Acquire(ctx context.Context, owner, jobID string) (*Workspace, error) {
	name, err := SanitizeOwner(owner)
	if err != nil {
		return nil, err
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" || strings.ContainsAny(jobID, `/\`) {
		return nil, fmt.Errorf("workspace: invalid job id %q", jobID)
	}

	slot := m.slot(name)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("workspace: wait for owner %s: %w", name, ctx.Err())
	}

	fileLock, err := m.lockFile(ctx, name)
	if err != nil {
		<-slot
		return nil, err
	}

	ws := &Workspace{
		Owner: name,
		JobID: jobID,
		Dir:   filepath.Join(m.root, name),
		release: func() error {
			defer func() { <-slot }()
			if err := fileLock.Unlock(); err != nil {
				return fmt.Errorf("unlock %s: %w", fileLock.Path(), err)
			}
			return nil
		},
		logger: m.logger.With(logging.String(logging.FieldOwner, name), logging.String(logging.FieldJobID, jobID)),
	}
	ws.logger.Debug("workspace acquired", logging.String("dir", ws.Dir))
	return ws, nil
}

func (m *Manager) slot(name string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.owners[name]
	if !ok {
		slot = make(chan struct{}, 1)
		m.owners[name] = slot
	}
	return slot
}

// lockPath names the owner's lock file. Lock files are empty and are never
// unlinked: removing a flock file while another process waits on its open
// descriptor would let that process and a newcomer lock different inodes for
// the same owner.
func (m *Manager) lockPath(name string) string {
	return filepath.Join(m.root, lockDirName, name+".lock")
}

func (m *Manager) lockFile(ctx context.Context, name string) (*flock.Flock, error) {
	path := m.lockPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("workspace: ensure lock dir: %w", err)
	}
	fileLock := flock.New(path)
	ok, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("workspace: lock owner %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("workspace: lock owner %s: not acquired", name)
	}
	return fileLock, nil
}

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes owner directories older than maxAge whose owner is not
// currently running a job.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration) CleanStaleResult {
	result := CleanStaleResult{}

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: m.root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: m.root, Error: ctx.Err()})
			return result
		}
		if !entry.IsDir() || entry.Name() == lockDirName {
			continue
		}

		dirPath := filepath.Join(m.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		removed, err := m.removeIfIdle(entry.Name(), dirPath)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(m.logger, "failed to remove stale workspace directory", "workspace_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		case removed:
			result.Removed = append(result.Removed, dirPath)
			m.logger.Info("removed stale workspace directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		default:
			result.Skipped = append(result.Skipped, dirPath)
		}
	}

	return result
}

func (m *Manager) removeIfIdle(name, dirPath string) (bool, error) {
	slot := m.slot(name)
	select {
	case slot <- struct{}{}:
	default:
		return false, nil
	}
	defer func() { <-slot }()

	if err := os.MkdirAll(filepath.Join(m.root, lockDirName), 0o755); err != nil {
		return false, err
	}
	fileLock := flock.New(m.lockPath(name))
	ok, err := fileLock.TryLock()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() { _ = fileLock.Unlock() }()

	if err := os.RemoveAll(dirPath); err != nil {
		return false, err
	}
	return true, nil
}

// DirInfo contains metadata about an owner directory.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
	Files   int       `json:"files"`
}

// List returns every owner directory under the root with its metadata.
func (m *Manager) List() ([]DirInfo, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == lockDirName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(m.root, entry.Name())
		size, files := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
		})
	}
	return dirs, nil
}

func dirSize(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
