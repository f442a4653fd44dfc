package flow

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testNow is a Wednesday evening; the current ISO week runs
// 2024-06-10 to 2024-06-16.
var testNow = time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)

// at returns a UTC instant on the given June 2024 day.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
}

// sess builds a session starting at start lasting minutes, with
// EndedAt set to start+minutes. Override fields via opts.
func sess(
	start time.Time, minutes float64, opts ...func(*Session),
) Session {
	secs := int(math.Round(minutes * 60))
	s := Session{
		ID:              fmt.Sprintf("s-%d-%d", start.Unix(), secs),
		UserID:          "u1",
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(secs) * time.Second),
		DurationSeconds: secs,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func withBreak(seconds int) func(*Session) {
	return func(s *Session) { s.BreakDurationSeconds = seconds }
}

func withTask(id string) func(*Session) {
	return func(s *Session) { s.TaskID = &id }
}

// repeat returns n sessions of the given length, one per hour
// backwards from start so they never overlap.
func repeat(n int, start time.Time, minutes float64) []Session {
	out := make([]Session, n)
	for i := range out {
		out[i] = sess(start.Add(-time.Duration(i)*time.Hour), minutes)
	}
	return out
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd unsorted", []float64{9, 1, 5}, 5},
		{"even averages middle", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.in))
		})
	}

	in := []float64{3, 1, 2}
	median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "median must not reorder input")
}

func TestMode(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"clear winner", []float64{1, 2, 2, 3}, 2},
		{"tie goes to first seen", []float64{5, 3, 3, 5}, 5},
		{"tie first seen later value", []float64{9, 4, 4, 9, 1}, 9},
		{"all distinct", []float64{8, 6, 7}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mode(tt.in))
		})
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 3, roundInt(2.5))
	assert.Equal(t, -2, roundInt(-2.5))
	assert.Equal(t, 2, roundInt(2.49))
	assert.Equal(t, 6.6, round1(30*0.22))
	assert.Equal(t, -1.6, round1(-1.6000000000000005))
	assert.Equal(t, 0.0, safeDiv(5, 0))
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Mon", dayName(time.Monday))
	assert.Equal(t, "Sun", dayName(time.Sunday))
}

func TestLocalTimeFollowsNow(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2024, 6, 12, 16, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, hourOf(ts, tokyo))
	assert.Equal(t, "2024-06-13", dateKey(ts, tokyo))
}
