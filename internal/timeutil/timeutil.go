// Package timeutil holds the timestamp and calendar helpers shared
// by the store, the importer and the analytics engine.
package timeutil

import (
	"strconv"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for day keys.
const DateLayout = "2006-01-02"

// Ptr formats t as an RFC3339Nano UTC string pointer, returning
// nil for the zero time.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// Format returns t as an RFC3339Nano UTC string, or "" for the
// zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Parse accepts RFC3339 (with or without fractional seconds) or
// integer epoch milliseconds.
func Parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// StartOfDay returns local midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysAgo returns midnight n days before now's calendar day, in
// now's location.
func DaysAgo(now time.Time, n int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-n, 0, 0, 0, 0, now.Location())
}

// WeekStart returns Monday 00:00 of the ISO week containing now.
// Sunday belongs to the week that started the previous Monday.
func WeekStart(now time.Time) time.Time {
	back := (int(now.Weekday()) + 6) % 7 // ISO Mon=0
	return DaysAgo(now, back)
}

// DateKey returns the YYYY-MM-DD day of t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
