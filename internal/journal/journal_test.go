package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clipquiz/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Begin(ctx, "job-1", "alice", "https://example.com/v"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, state := range []string{"fetching", "transcoding", "transcribing", "generating", "normalizing", journal.StateDone} {
		if err := store.Transition(ctx, "job-1", state); err != nil {
			t.Fatalf("Transition(%s): %v", state, err)
		}
	}
	if err := store.Finish(ctx, "job-1", journal.Outcome{
		State:         journal.StateCleanedUp,
		QuizTitle:     "Cells",
		QuestionCount: 10,
	}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	entry, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry")
	}
	if entry.State != journal.StateCleanedUp || entry.QuizTitle != "Cells" || entry.QuestionCount != 10 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.Succeeded() || entry.FinishedAt == nil {
		t.Fatalf("expected finished success: %+v", entry)
	}
	if entry.SourceURL != "https://example.com/v" || entry.Owner != "alice" {
		t.Fatalf("unexpected identity: %+v", entry)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openStore(t)
	entry, err := store.Get(context.Background(), "nope")
	if err != nil || entry != nil {
		t.Fatalf("Get missing = %+v, %v", entry, err)
	}
}

func TestTransitionUnknownRun(t *testing.T) {
	store := openStore(t)
	if err := store.Transition(context.Background(), "ghost", "fetching"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, r := range []struct{ id, owner string }{{"a", "alice"}, {"b", "bob"}, {"c", "alice"}} {
		if err := store.Begin(ctx, r.id, r.owner, "https://example.com/"+r.id); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %v", ids(all))
	}

	limited, err := store.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("List limit: %v %v", ids(limited), err)
	}

	alice, err := store.ListByOwner(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(alice) != 2 || alice[0].ID != "c" || alice[1].ID != "a" {
		t.Fatalf("alice runs = %v", ids(alice))
	}
}

func TestStatsAndMarkAbandoned(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustBegin := func(id string) {
		if err := store.Begin(ctx, id, "alice", "https://example.com/"+id); err != nil {
			t.Fatal(err)
		}
	}
	mustBegin("ok")
	mustBegin("bad")
	mustBegin("stuck")
	if err := store.Finish(ctx, "ok", journal.Outcome{State: journal.StateCleanedUp, QuizTitle: "T", QuestionCount: 10}); err != nil {
		t.Fatal(err)
	}
	if err := store.Finish(ctx, "bad", journal.Outcome{State: journal.StateCleanedUp, ErrorKind: "fetch", ErrorMessage: "404"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Transition(ctx, "stuck", "transcribing"); err != nil {
		t.Fatal(err)
	}

	n, err := store.MarkAbandoned(ctx, time.Hour, "")
	if err != nil || n != 0 {
		t.Fatalf("recent run should not be abandoned: n=%d err=%v", n, err)
	}
	n, err = store.MarkAbandoned(ctx, -time.Second, "daemon restarted")
	if err != nil || n != 1 {
		t.Fatalf("MarkAbandoned = %d, %v", n, err)
	}
	stuck, err := store.Get(ctx, "stuck")
	if err != nil {
		t.Fatal(err)
	}
	if stuck.State != journal.StateFailed || stuck.ErrorKind != journal.AbandonedKind || stuck.ErrorMessage != "daemon restarted" {
		t.Fatalf("stuck entry = %+v", stuck)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[journal.StateCleanedUp] != 2 || stats[journal.StateFailed] != 1 {
		t.Fatalf("state counts = %v", stats)
	}
	if stats["succeeded"] != 1 || stats["failed_runs"] != 2 {
		t.Fatalf("outcome counts = %v", stats)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Begin(context.Background(), "persist", "alice", "https://example.com"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entry, err := reopened.Get(context.Background(), "persist")
	if err != nil || entry == nil {
		t.Fatalf("entry after reopen: %+v %v", entry, err)
	}
}

func ids(entries []*journal.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
