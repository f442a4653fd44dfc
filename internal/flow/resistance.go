package flow

import (
	"math"
	"sort"
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

const (
	resistanceMinSessions = 10
	resistanceRecentDays  = 7
	// modeDriftLimit is the relative mode/median gap beyond which
	// the mode is treated as unrepresentative.
	modeDriftLimit = 0.2
)

// RecentSession is a compact view of one recent session.
type RecentSession struct {
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ResistancePointResult estimates where sessions typically end.
type ResistancePointResult struct {
	HasEnoughData    bool    `json:"has_enough_data"`
	ResistanceMinute int     `json:"resistance_minute"`
	ModeMinutes      int     `json:"mode_minutes"`
	MedianMinutes    float64 `json:"median_minutes"`
	SampleSize       int     `json:"sample_size"`
	// RecentSessions covers the last 7 days and is filled even
	// when HasEnoughData is false.
	RecentSessions []RecentSession `json:"recent_sessions"`
}

// ResistancePoint picks the most common whole-minute session
// length, falling back to the median when the mode sits more than
// 20% away from it.
func ResistancePoint(
	sessions []Session, now time.Time,
) ResistancePointResult {
	res := ResistancePointResult{
		RecentSessions: recentSessions(sessions, now),
	}
	if len(sessions) < resistanceMinSessions {
		return res
	}

	mins := make([]float64, len(sessions))
	for i, s := range sessions {
		mins[i] = roundHalfUp(durationMinutes(s))
	}
	mo := mode(mins)
	med := median(mins)

	res.HasEnoughData = true
	res.ModeMinutes = int(mo)
	res.MedianMinutes = med
	res.SampleSize = len(sessions)
	if math.Abs(mo-med)/math.Max(med, 1) > modeDriftLimit {
		res.ResistanceMinute = roundInt(med)
	} else {
		res.ResistanceMinute = int(mo)
	}
	return res
}

func recentSessions(
	sessions []Session, now time.Time,
) []RecentSession {
	loc := now.Location()
	recent := startedSince(
		sessions, timeutil.DaysAgo(now, resistanceRecentDays),
	)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].StartedAt.Before(recent[j].StartedAt)
	})
	out := make([]RecentSession, len(recent))
	for i, s := range recent {
		out[i] = RecentSession{
			Date:            dateKey(s.StartedAt, loc),
			DurationMinutes: roundInt(durationMinutes(s)),
		}
	}
	return out
}
