// Package flow computes behavioral analytics over a user's focus
// sessions.
//
// Every metric is a pure function of a session snapshot and an
// explicit "now". Local time means now.Location(): instants are
// converted into it before any day or hour is extracted, so a
// caller picks the user's timezone by choosing the location of
// the time it passes in. Metrics never read the wall clock and
// never mutate their inputs, so concurrent calls need no locking.
package flow

import (
	"context"
	"time"
)

// Session is one completed focus interval.
type Session struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	StartedAt            time.Time `json:"started_at"`
	EndedAt              time.Time `json:"ended_at"`
	DurationSeconds      int       `json:"duration_seconds"`
	BreakDurationSeconds int       `json:"break_duration_seconds"`
	TaskID               *string   `json:"task_id"`
}

// Task is the subset of a task record the engine needs.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Source delivers a user's session and task snapshot. The store
// implements it; Run reads it exactly once per call.
type Source interface {
	Snapshot(
		ctx context.Context, userID string,
	) ([]Session, []Task, error)
}

// Clock returns the current time. Servers and commands hold one
// so tests can pin "now"; metric functions take the value.
type Clock func() time.Time

// SystemClock reads the wall clock in the given location.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Input is the snapshot every metric is evaluated against.
type Input struct {
	Sessions []Session
	Tasks    []Task
	Now      time.Time
	// WeekOffset selects the week for WeeklyWorkTime: 0 is the
	// current week, -1 the previous one.
	WeekOffset int
}
