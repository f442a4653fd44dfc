package db

import (
	"context"
	"fmt"
	"log"

	"github.com/wesm/flowstate/internal/flow"
)

var _ flow.Source = (*DB)(nil)

// Snapshot loads every session and task belonging to userID for a
// single metrics run. Rows with unreadable instants are logged and
// left out.
func (db *DB) Snapshot(
	ctx context.Context, userID string,
) ([]flow.Session, []flow.Task, error) {
	rows, err := db.reader.QueryContext(ctx,
		"SELECT "+sessionCols+
			" FROM sessions WHERE user_id = ?"+
			" ORDER BY started_at, id",
		userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("querying snapshot sessions: %w", err)
	}
	defer rows.Close()

	stored, err := scanSessionRows(rows)
	if err != nil {
		return nil, nil, err
	}

	sessions := make([]flow.Session, 0, len(stored))
	for _, s := range stored {
		fs, ok := s.ToFlow()
		if !ok {
			log.Printf("snapshot: skipping session %s: bad timestamps", s.ID)
			continue
		}
		sessions = append(sessions, fs)
	}

	stasks, err := db.ListTasks(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	tasks := make([]flow.Task, len(stasks))
	for i, t := range stasks {
		tasks[i] = flow.Task{ID: t.ID, Title: t.Title}
	}
	return sessions, tasks, nil
}
