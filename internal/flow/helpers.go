package flow

import (
	"math"
	"sort"
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

// durationMinutes returns the focus time of s in minutes.
func durationMinutes(s Session) float64 {
	return float64(s.DurationSeconds) / 60
}

// breakMinutes returns the break time of s in minutes.
func breakMinutes(s Session) float64 {
	return float64(s.BreakDurationSeconds) / 60
}

// dateKey returns the local YYYY-MM-DD of t.
func dateKey(t time.Time, loc *time.Location) string {
	return timeutil.DateKey(t, loc)
}

// hourOf returns the local hour (0-23) of t.
func hourOf(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// median returns the median of xs without modifying it. For an
// even count it averages the two middle values; empty yields 0.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// mode returns the most frequent value in xs. Ties go to the value
// encountered first; empty yields 0.
func mode(xs []float64) float64 {
	counts := make(map[float64]int, len(xs))
	var order []float64
	for _, x := range xs {
		if counts[x] == 0 {
			order = append(order, x)
		}
		counts[x]++
	}
	best, bestCount := 0.0, 0
	for _, x := range order {
		if counts[x] > bestCount {
			best, bestCount = x, counts[x]
		}
	}
	return best
}

// mean returns the arithmetic mean, 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev returns the population standard deviation around m.
func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sq := 0.0
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// roundHalfUp rounds to the nearest integer with halves going
// toward +Inf, so -2.5 becomes -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// roundInt is roundHalfUp converted to int.
func roundInt(x float64) int {
	return int(roundHalfUp(x))
}

// round1 rounds to one decimal place with roundHalfUp semantics.
func round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// safeDiv returns a/b, or 0 when b is zero.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

var dayNames = [...]string{
	"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat",
}

// dayName returns the three-letter English name of a weekday.
func dayName(d time.Weekday) string {
	return dayNames[d]
}

// startedSince returns the sessions starting at or after cutoff,
// preserving input order.
func startedSince(
	sessions []Session, cutoff time.Time,
) []Session {
	var out []Session
	for _, s := range sessions {
		if !s.StartedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// onDay returns the sessions whose local start date is day.
func onDay(
	sessions []Session, day string, loc *time.Location,
) []Session {
	var out []Session
	for _, s := range sessions {
		if dateKey(s.StartedAt, loc) == day {
			out = append(out, s)
		}
	}
	return out
}
