package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSanitizeOwner(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"  bob  ", "bob"},
		{"a/b", "a_b"},
		{"../../etc", "_.._etc"},
		{"..hidden", "hidden"},
		{"name with space", "name_with_space"},
		{"jürgen", "j_rgen"},
	}
	for _, tc := range tests {
		got, err := SanitizeOwner(tc.in)
		if err != nil {
			t.Fatalf("SanitizeOwner(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("SanitizeOwner(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if strings.ContainsAny(got, `/\`) || got == "." || got == ".." {
			t.Errorf("SanitizeOwner(%q) produced unsafe %q", tc.in, got)
		}
	}

	for _, bad := range []string{"", "   ", "..", "/", "///", strings.Repeat("x", 200)} {
		if _, err := SanitizeOwner(bad); !errors.Is(err, ErrInvalidOwner) {
			t.Errorf("SanitizeOwner(%q) = %v, want ErrInvalidOwner", bad, err)
		}
	}
}

func TestWorkspacePathsAreJobKeyed(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	ws, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()

	if ws.Dir != filepath.Join(root, "alice") {
		t.Fatalf("dir = %q", ws.Dir)
	}
	if got := ws.Path("audio_norm.wav"); got != filepath.Join(root, "alice", "job-1_audio_norm.wav") {
		t.Fatalf("path = %q", got)
	}
	if got := ws.OutputTemplate(); got != filepath.Join(root, "alice", "job-1_audio.%(ext)s") {
		t.Fatalf("template = %q", got)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("dir should not exist before Ensure: %v", err)
	}
}

func TestAcquireRejectsBadInput(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	if _, err := mgr.Acquire(context.Background(), "", "job"); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
	if _, err := mgr.Acquire(context.Background(), "alice", "a/b"); err == nil {
		t.Fatal("expected job id error")
	}
}

func TestReleaseRemovesTrackedFilesAndEmptyDir(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	ws, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	audio := ws.Path("audio.webm")
	norm := ws.Path("audio_norm.wav")
	for _, p := range []string{audio, norm} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ws.Track(audio, norm, ws.Path("never_written.wav"), "/etc/passwd")
	if got := len(ws.Tracked()); got != 3 {
		t.Fatalf("tracked = %d, want 3", got)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("owner dir should be removed: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestReleaseKeepsForeignFiles(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	ws, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	foreign := filepath.Join(ws.Dir, "keep.txt")
	if err := os.WriteFile(foreign, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file should survive: %v", err)
	}
}

func TestReleaseReportsErrorsButUnlocks(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	ws, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	// A non-empty directory at a tracked path cannot be removed with os.Remove.
	stuck := ws.Path("audio.webm")
	if err := os.MkdirAll(filepath.Join(stuck, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	ws.Track(stuck)
	if err := ws.Release(); err == nil {
		t.Fatal("expected cleanup error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next, err := mgr.Acquire(ctx, "alice", "job-2")
	if err != nil {
		t.Fatalf("lock should be released after failed cleanup: %v", err)
	}
	_ = next.Release()
}

func TestAcquireSerializesSameOwner(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, err := mgr.Acquire(context.Background(), "alice", "job-"+string(rune('a'+i)))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			_ = ws.Release()
		}()
	}
	wg.Wait()
	if maxActive.Load() != 1 {
		t.Fatalf("expected one job at a time, saw %d", maxActive.Load())
	}
}

func TestAcquireDifferentOwnersConcurrently(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	a, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := mgr.Acquire(ctx, "bob", "job-2")
	if err != nil {
		t.Fatalf("different owner should not wait: %v", err)
	}
	_ = b.Release()
}

func TestAcquireHonoursContext(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	held, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := mgr.Acquire(ctx, "alice", "job-2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCleanStaleSkipsActiveOwners(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	old := time.Now().Add(-48 * time.Hour)
	for _, owner := range []string{"idle", "busy", "fresh"} {
		dir := filepath.Join(root, owner)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "x_audio.webm"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if owner != "fresh" {
			if err := os.Chtimes(dir, old, old); err != nil {
				t.Fatal(err)
			}
		}
	}

	busy, err := mgr.Acquire(context.Background(), "busy", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Release()

	result := mgr.CleanStale(context.Background(), 24*time.Hour)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || filepath.Base(result.Removed[0]) != "idle" {
		t.Fatalf("removed = %v", result.Removed)
	}
	if len(result.Skipped) != 1 || filepath.Base(result.Skipped[0]) != "busy" {
		t.Fatalf("skipped = %v", result.Skipped)
	}
	if _, err := os.Stat(filepath.Join(root, "fresh")); err != nil {
		t.Fatalf("fresh dir should remain: %v", err)
	}
}

func TestListSkipsLockDir(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	ws, err := mgr.Acquire(context.Background(), "alice", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.Path("audio.webm"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	dirs, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "alice" || dirs[0].Size != 5 || dirs[0].Files != 1 {
		t.Fatalf("dirs = %+v", dirs)
	}
	ws.Track(ws.Path("audio.webm"))
	_ = ws.Release()

	empty, err := NewManager(filepath.Join(root, "missing"), nil).List()
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing root: %v %v", empty, err)
	}
}

func TestTrackJobFilesPicksUpPartialDownloads(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	ws, err := mgr.Acquire(context.Background(), "carol", "job-9")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	partial := ws.Path("audio.webm.part")
	other := filepath.Join(ws.Dir, "job-10_audio.webm")
	for _, p := range []string{partial, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := ws.TrackJobFiles(); err != nil {
		t.Fatalf("TrackJobFiles: %v", err)
	}
	tracked := ws.Tracked()
	if len(tracked) != 1 || tracked[0] != partial {
		t.Fatalf("tracked = %v, want [%s]", tracked, partial)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("other job's file should survive: %v", err)
	}
}

func TestLockFilesOutliveOwnerDirectories(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)

	ws, err := mgr.Acquire(context.Background(), "dana", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	audio := ws.Path("audio.webm")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws.Track(audio)
	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dana")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected owner dir removed, got %v", err)
	}

	lockPath := filepath.Join(root, ".locks", "dana.lock")
	info, err := os.Stat(lockPath)
	if err != nil {
		t.Fatalf("expected lock file to persist: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty lock file, got %d bytes", info.Size())
	}

	result := mgr.CleanStale(context.Background(), 0)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("lock dir must not be swept: %+v", result)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file removed by CleanStale: %v", err)
	}

	again, err := mgr.Acquire(context.Background(), "dana", "job-2")
	if err != nil {
		t.Fatalf("re-acquire with existing lock file: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatal(err)
	}
}
