package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Terminal journal states. Pipeline stage names are stored verbatim for
// in-flight runs.
const (
	StateDone      = "done"
	StateFailed    = "failed"
	StateCleanedUp = "cleaned_up"
	StatePending   = "pending"
)

// AbandonedKind is the error kind recorded by MarkAbandoned.
const AbandonedKind = "abandoned"

// Entry is one recorded conversion run.
type Entry struct {
	ID            string     `json:"id"`
	Owner         string     `json:"owner"`
	SourceURL     string     `json:"source_url"`
	State         string     `json:"state"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	QuizTitle     string     `json:"quiz_title,omitempty"`
	QuestionCount int        `json:"question_count"`
	CleanupError  string     `json:"cleanup_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Succeeded reports whether the run produced a quiz.
func (e *Entry) Succeeded() bool {
	return e != nil && e.ErrorKind == "" && e.QuestionCount > 0
}

// Duration returns the wall time between creation and finish (or last update).
func (e *Entry) Duration() time.Duration {
	if e == nil {
		return 0
	}
	end := e.UpdatedAt
	if e.FinishedAt != nil {
		end = *e.FinishedAt
	}
	if end.Before(e.CreatedAt) {
		return 0
	}
	return end.Sub(e.CreatedAt)
}

// Outcome summarizes a finished run.
type Outcome struct {
	State         string
	ErrorKind     string
	ErrorMessage  string
	QuizTitle     string
	QuestionCount int
	CleanupError  string
}

const runColumns = "id, owner, source_url, state, error_kind, error_message, quiz_title, question_count, cleanup_error, created_at, updated_at, finished_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry        Entry
		errorKind    sql.NullString
		errorMessage sql.NullString
		quizTitle    sql.NullString
		cleanupError sql.NullString
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Owner,
		&entry.SourceURL,
		&entry.State,
		&errorKind,
		&errorMessage,
		&quizTitle,
		&entry.QuestionCount,
		&cleanupError,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	entry.ErrorKind = errorKind.String
	entry.ErrorMessage = errorMessage.String
	entry.QuizTitle = quizTitle.String
	entry.CleanupError = cleanupError.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			entry.FinishedAt = &finished
		}
	}
	return &entry, nil
}

// Begin records a new run in the pending state.
func (s *Store) Begin(ctx context.Context, id, owner, sourceURL string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("journal begin: id required")
	}
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, owner, source_url, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, owner, sourceURL, StatePending, now, now,
	)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	return nil
}

// Transition records the run's current state.
func (s *Store) Transition(ctx context.Context, id, state string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET state = ?, updated_at = ? WHERE id = ?`,
		state, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("journal transition: %w", err)
	}
	return requireRow(res, id)
}

// Finish records the run's outcome and marks it finished.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET state = ?, error_kind = ?, error_message = ?, quiz_title = ?,
             question_count = ?, cleanup_error = ?, updated_at = ?, finished_at = ?
         WHERE id = ?`,
		outcome.State,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		nullableString(outcome.QuizTitle),
		outcome.QuestionCount,
		nullableString(outcome.CleanupError),
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	return requireRow(res, id)
}

// Get fetches a run by identifier. It returns nil when no run matches.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal get: %w", err)
	}
	return entry, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	return s.query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC`+limitClause(limit))
}

// ListByOwner returns the most recent runs for one owner, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int) ([]*Entry, error) {
	return s.query(ctx, `SELECT `+runColumns+` FROM runs WHERE owner = ? ORDER BY created_at DESC, rowid DESC`+limitClause(limit), owner)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("journal list: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("journal: run %s not found", id)
	}
	return nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
