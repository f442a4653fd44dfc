package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats holds store-wide counts.
type Stats struct {
	SessionCount int     `json:"session_count"`
	TaskCount    int     `json:"task_count"`
	UserCount    int     `json:"user_count"`
	FocusMinutes int     `json:"focus_minutes"`
	FirstStarted *string `json:"first_started_at,omitempty"`
	LastStarted  *string `json:"last_started_at,omitempty"`
}

// GetStats returns aggregate counts over the whole store.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(DISTINCT user_id) FROM sessions),
			(SELECT COALESCE(SUM(duration_seconds), 0) FROM sessions),
			(SELECT MIN(started_at) FROM sessions),
			(SELECT MAX(started_at) FROM sessions)`

	var s Stats
	var seconds int64
	var first, last sql.NullString
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.SessionCount,
		&s.TaskCount,
		&s.UserCount,
		&seconds,
		&first,
		&last,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	s.FocusMinutes = int(seconds / 60)
	if first.Valid {
		s.FirstStarted = &first.String
	}
	if last.Valid {
		s.LastStarted = &last.String
	}
	return s, nil
}
