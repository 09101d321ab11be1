package journal

import (
	"context"
	"fmt"
	"time"
)

// Stats returns a count of runs grouped by state, plus "succeeded" and
// "failed_runs" totals for finished runs.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM runs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var succeeded, failed int
	err = s.db.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(CASE WHEN error_kind IS NULL AND question_count > 0 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN error_kind IS NOT NULL THEN 1 ELSE 0 END), 0)
        FROM runs WHERE finished_at IS NOT NULL`).Scan(&succeeded, &failed)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	stats["succeeded"] = succeeded
	stats["failed_runs"] = failed
	return stats, nil
}

// MarkAbandoned fails every unfinished run whose last update is older than
// olderThan. Runs from other live processes keep updating their rows at each
// stage, so a cutoff at least as long as the job timeout only catches runs
// whose process died mid-pipeline.
func (s *Store) MarkAbandoned(ctx context.Context, olderThan time.Duration, reason string) (int64, error) {
	if reason == "" {
		reason = "process exited before the run finished"
	}
	now := time.Now()
	cutoff := formatTime(now.Add(-olderThan))
	stamp := formatTime(now)
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE finished_at IS NULL AND updated_at < ?`,
		StateFailed, AbandonedKind, reason, stamp, stamp, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("journal mark abandoned: %w", err)
	}
	return res.RowsAffected()
}
