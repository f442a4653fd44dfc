// Package dbtest provides helpers for tests that need a real
// SQLite store.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/timeutil"
)

// OpenTestDB opens a fresh database in a temp directory and closes
// it when the test ends.
func OpenTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// SeedSession inserts a session for userID starting at start and
// lasting minutes of focus. Options may adjust the row before it is
// written.
func SeedSession(
	t *testing.T, d *db.DB, id, userID string,
	start time.Time, minutes int, opts ...func(*db.Session),
) db.Session {
	t.Helper()
	s := db.Session{
		ID:              id,
		UserID:          userID,
		StartedAt:       timeutil.Format(start),
		EndedAt:         timeutil.Format(start.Add(time.Duration(minutes) * time.Minute)),
		DurationSeconds: minutes * 60,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := d.UpsertSession(s); err != nil {
		t.Fatalf("seeding session %s: %v", id, err)
	}
	return s
}

// SeedTask inserts a task.
func SeedTask(t *testing.T, d *db.DB, id, userID, title string) {
	t.Helper()
	if err := d.UpsertTask(db.Task{
		ID: id, UserID: userID, Title: title,
	}); err != nil {
		t.Fatalf("seeding task %s: %v", id, err)
	}
}
