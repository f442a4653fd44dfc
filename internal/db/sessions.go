package db

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wesm/flowstate/internal/flow"
	"github.com/wesm/flowstate/internal/timeutil"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded or verified.
var ErrInvalidCursor = errors.New("invalid cursor")

// ErrInvalidSession is wrapped by ValidateSession failures.
var ErrInvalidSession = errors.New("invalid session")

// sessionCols is the column list for session queries.
// Keep in sync with scanSessionRow.
const sessionCols = `id, user_id, started_at, ended_at,
	duration_seconds, break_duration_seconds, task_id,
	source_path, created_at`

const (
	// DefaultSessionLimit is the default number of sessions returned.
	DefaultSessionLimit = 200
	// MaxSessionLimit is the maximum number of sessions returned.
	MaxSessionLimit = 500
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRow(rs rowScanner) (Session, error) {
	var s Session
	err := rs.Scan(
		&s.ID, &s.UserID, &s.StartedAt, &s.EndedAt,
		&s.DurationSeconds, &s.BreakDurationSeconds, &s.TaskID,
		&s.SourcePath, &s.CreatedAt,
	)
	return s, err
}

func scanSessionRows(rows *sql.Rows) ([]Session, error) {
	sessions := []Session{}
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Session represents a row in the sessions table. Instants are
// stored as RFC3339 UTC strings.
type Session struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"user_id"`
	StartedAt            string  `json:"started_at"`
	EndedAt              string  `json:"ended_at"`
	DurationSeconds      int     `json:"duration_seconds"`
	BreakDurationSeconds int     `json:"break_duration_seconds"`
	TaskID               *string `json:"task_id,omitempty"`
	SourcePath           *string `json:"source_path,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// FromFlow converts an engine session into a storable row.
func FromFlow(s flow.Session) Session {
	return Session{
		ID:                   s.ID,
		UserID:               s.UserID,
		StartedAt:            timeutil.Format(s.StartedAt),
		EndedAt:              timeutil.Format(s.EndedAt),
		DurationSeconds:      s.DurationSeconds,
		BreakDurationSeconds: s.BreakDurationSeconds,
		TaskID:               s.TaskID,
	}
}

// ToFlow parses the stored instants. ok is false when either
// instant is unreadable.
func (s Session) ToFlow() (flow.Session, bool) {
	start, ok := timeutil.Parse(s.StartedAt)
	if !ok {
		return flow.Session{}, false
	}
	end, ok := timeutil.Parse(s.EndedAt)
	if !ok {
		return flow.Session{}, false
	}
	return flow.Session{
		ID:                   s.ID,
		UserID:               s.UserID,
		StartedAt:            start,
		EndedAt:              end,
		DurationSeconds:      s.DurationSeconds,
		BreakDurationSeconds: s.BreakDurationSeconds,
		TaskID:               s.TaskID,
	}, true
}

// ValidateSession checks the invariants the metrics engine relies
// on: an ID and owner, ordered instants and non-negative durations.
func ValidateSession(s flow.Session) error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	case strings.TrimSpace(s.UserID) == "":
		return fmt.Errorf("%w: missing user_id", ErrInvalidSession)
	case s.StartedAt.IsZero() || s.EndedAt.IsZero():
		return fmt.Errorf("%w: missing start or end", ErrInvalidSession)
	case s.EndedAt.Before(s.StartedAt):
		return fmt.Errorf(
			"%w: ended_at before started_at", ErrInvalidSession,
		)
	case s.DurationSeconds < 0:
		return fmt.Errorf(
			"%w: negative duration_seconds", ErrInvalidSession,
		)
	case s.BreakDurationSeconds < 0:
		return fmt.Errorf(
			"%w: negative break_duration_seconds", ErrInvalidSession,
		)
	}
	return nil
}

// SessionCursor is the opaque pagination token.
type SessionCursor struct {
	StartedAt string `json:"s"`
	ID        string `json:"i"`
	Total     int    `json:"t,omitempty"`
}

// EncodeCursor returns a signed, base64-encoded cursor string.
func (db *DB) EncodeCursor(startedAt, id string, total int) string {
	c := SessionCursor{StartedAt: startedAt, ID: id, Total: total}
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(db.signCursor(data))
}

func (db *DB) signCursor(data []byte) []byte {
	db.cursorMu.RLock()
	mac := hmac.New(sha256.New, db.cursorSecret)
	db.cursorMu.RUnlock()
	mac.Write(data)
	return mac.Sum(nil)
}

// DecodeCursor parses and verifies a cursor string.
func (db *DB) DecodeCursor(s string) (SessionCursor, error) {
	payload, sigStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(sigStr, ".") {
		return SessionCursor{}, fmt.Errorf(
			"%w: invalid format", ErrInvalidCursor,
		)
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return SessionCursor{}, fmt.Errorf(
			"%w: invalid payload: %v", ErrInvalidCursor, err,
		)
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigStr)
	if err != nil {
		return SessionCursor{}, fmt.Errorf(
			"%w: invalid signature encoding: %v", ErrInvalidCursor, err,
		)
	}
	if !hmac.Equal(sig, db.signCursor(data)) {
		return SessionCursor{}, fmt.Errorf(
			"%w: signature mismatch", ErrInvalidCursor,
		)
	}

	var c SessionCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return SessionCursor{}, fmt.Errorf(
			"%w: invalid json: %v", ErrInvalidCursor, err,
		)
	}
	return c, nil
}

// SessionFilter specifies how to query sessions.
type SessionFilter struct {
	UserID   string
	TaskID   string
	DateFrom string // YYYY-MM-DD, UTC, inclusive
	DateTo   string // YYYY-MM-DD, UTC, inclusive
	Cursor   string
	Limit    int
}

// SessionPage is a page of session results.
type SessionPage struct {
	Sessions   []Session `json:"sessions"`
	NextCursor string    `json:"next_cursor,omitempty"`
	Total      int       `json:"total"`
}

// buildSessionFilter returns a WHERE clause and args for the
// non-cursor predicates in SessionFilter.
func buildSessionFilter(f SessionFilter) (string, []any) {
	preds := []string{"1=1"}
	var args []any

	if f.UserID != "" {
		preds = append(preds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.TaskID != "" {
		preds = append(preds, "task_id = ?")
		args = append(args, f.TaskID)
	}
	if f.DateFrom != "" {
		preds = append(preds, "date(started_at) >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		preds = append(preds, "date(started_at) <= ?")
		args = append(args, f.DateTo)
	}
	return strings.Join(preds, " AND "), args
}

// ListSessions returns a cursor-paginated list of sessions, most
// recent first.
func (db *DB) ListSessions(
	ctx context.Context, f SessionFilter,
) (SessionPage, error) {
	if f.Limit <= 0 || f.Limit > MaxSessionLimit {
		f.Limit = DefaultSessionLimit
	}

	where, args := buildSessionFilter(f)

	var total int
	var cur SessionCursor
	if f.Cursor != "" {
		var err error
		cur, err = db.DecodeCursor(f.Cursor)
		if err != nil {
			return SessionPage{}, err
		}
		total = cur.Total
	}
	if total <= 0 {
		countQuery := "SELECT COUNT(*) FROM sessions WHERE " + where
		if err := db.reader.QueryRowContext(
			ctx, countQuery, args...,
		).Scan(&total); err != nil {
			return SessionPage{},
				fmt.Errorf("counting sessions: %w", err)
		}
	}

	cursorArgs := append([]any{}, args...)
	cursorWhere := where
	if f.Cursor != "" {
		cursorWhere += " AND (started_at, id) < (?, ?)"
		cursorArgs = append(cursorArgs, cur.StartedAt, cur.ID)
	}

	query := "SELECT " + sessionCols +
		" FROM sessions WHERE " + cursorWhere +
		" ORDER BY started_at DESC, id DESC LIMIT ?"
	cursorArgs = append(cursorArgs, f.Limit+1)

	rows, err := db.reader.QueryContext(ctx, query, cursorArgs...)
	if err != nil {
		return SessionPage{},
			fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessionRows(rows)
	if err != nil {
		return SessionPage{}, err
	}

	page := SessionPage{Sessions: sessions, Total: total}
	if len(sessions) > f.Limit {
		page.Sessions = sessions[:f.Limit]
		last := page.Sessions[f.Limit-1]
		page.NextCursor = db.EncodeCursor(last.StartedAt, last.ID, total)
	}
	return page, nil
}

// GetSession returns a single session by ID, or ErrNotFound.
func (db *DB) GetSession(
	ctx context.Context, id string,
) (*Session, error) {
	row := db.reader.QueryRowContext(
		ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE id = ?",
		id,
	)
	s, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &s, nil
}

const upsertSessionSQL = `
	INSERT INTO sessions (
		id, user_id, started_at, ended_at,
		duration_seconds, break_duration_seconds,
		task_id, source_path
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		started_at = excluded.started_at,
		ended_at = excluded.ended_at,
		duration_seconds = excluded.duration_seconds,
		break_duration_seconds = excluded.break_duration_seconds,
		task_id = excluded.task_id,
		source_path = excluded.source_path`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertSession(ex execer, s Session) error {
	_, err := ex.Exec(upsertSessionSQL,
		s.ID, s.UserID, s.StartedAt, s.EndedAt,
		s.DurationSeconds, s.BreakDurationSeconds,
		s.TaskID, s.SourcePath)
	if err != nil {
		return fmt.Errorf("upserting session %s: %w", s.ID, err)
	}
	return nil
}

// UpsertSession inserts or updates a session.
func (db *DB) UpsertSession(s Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return upsertSession(db.writer, s)
}

// UpsertSessions writes a batch of sessions in one transaction.
func (db *DB) UpsertSessions(sessions []Session) error {
	if len(sessions) == 0 {
		return nil
	}
	return db.Update(func(tx *sql.Tx) error {
		for _, s := range sessions {
			if err := upsertSession(tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSession removes a session. Returns ErrNotFound if no row
// matched.
func (db *DB) DeleteSession(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.writer.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessionsBefore removes a user's sessions that started
// before the cutoff. Returns the number of deleted rows.
func (db *DB) DeleteSessionsBefore(
	userID string, cutoff time.Time,
) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.writer.Exec(
		"DELETE FROM sessions WHERE user_id = ? AND started_at < ?",
		userID, timeutil.Format(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountSessionsBefore reports how many of userID's sessions started
// before cutoff.
func (db *DB) CountSessionsBefore(
	ctx context.Context, userID string, cutoff time.Time,
) (int, error) {
	var n int
	err := db.reader.QueryRowContext(ctx,
		"SELECT count(*) FROM sessions WHERE user_id = ? AND started_at < ?",
		userID, timeutil.Format(cutoff),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}
