package flow

import (
	"sort"
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

const (
	streakMinSessions = 3
	streakWindowDays  = 30
	// fillRatio scales the recent daily mean into the bar a day
	// has to clear to count toward a streak.
	fillRatio = 0.5
)

// StreakDay is one calendar day of the 30-day streak strip.
type StreakDay struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
	Filled  bool    `json:"filled"`
}

// FlowStreakResult reports consecutive days of meaningful focus.
type FlowStreakResult struct {
	HasEnoughData bool        `json:"has_enough_data"`
	CurrentStreak int         `json:"current_streak"`
	RecordStreak  int         `json:"record_streak"`
	Threshold     float64     `json:"threshold"`
	Last30Days    []StreakDay `json:"last_30_days"`
}

// FlowStreak counts runs of filled days, where a day is filled when
// its focus minutes reach half the mean of the active days in the
// last 30. The record scans the whole history, not just the strip.
func FlowStreak(
	sessions []Session, now time.Time,
) FlowStreakResult {
	if len(sessions) < streakMinSessions {
		return FlowStreakResult{Last30Days: []StreakDay{}}
	}
	loc := now.Location()

	scores := make(map[string]float64)
	for _, s := range sessions {
		scores[dateKey(s.StartedAt, loc)] += durationMinutes(s)
	}

	from := timeutil.DaysAgo(now, streakWindowDays-1)
	fromKey := from.Format(timeutil.DateLayout)
	todayKey := dateKey(now, loc)
	var recent []float64
	for day, score := range scores {
		if day >= fromKey && day <= todayKey {
			recent = append(recent, score)
		}
	}
	// Sum in a fixed order so the threshold is reproducible.
	sort.Float64s(recent)
	threshold := fillRatio * mean(recent)

	filled := func(day string) bool {
		score, ok := scores[day]
		return ok && threshold > 0 && score >= threshold
	}

	res := FlowStreakResult{
		HasEnoughData: true,
		Threshold:     round1(threshold),
		Last30Days:    make([]StreakDay, streakWindowDays),
	}
	for i := range streakWindowDays {
		key := from.AddDate(0, 0, i).Format(timeutil.DateLayout)
		res.Last30Days[i] = StreakDay{
			Date:    key,
			Minutes: round1(scores[key]),
			Filled:  filled(key),
		}
	}
	for i := streakWindowDays - 1; i >= 0; i-- {
		if !res.Last30Days[i].Filled {
			break
		}
		res.CurrentStreak++
	}
	res.RecordStreak = recordStreak(scores, filled, loc)
	return res
}

// recordStreak walks every calendar day between the earliest and
// latest active day and returns the longest filled run.
func recordStreak(
	scores map[string]float64,
	filled func(string) bool,
	loc *time.Location,
) int {
	var first, last string
	for day := range scores {
		if first == "" || day < first {
			first = day
		}
		if last == "" || day > last {
			last = day
		}
	}
	start, err := time.ParseInLocation(timeutil.DateLayout, first, loc)
	if err != nil {
		return 0
	}

	best, run := 0, 0
	for d := start; ; d = d.AddDate(0, 0, 1) {
		key := d.Format(timeutil.DateLayout)
		if key > last {
			break
		}
		if filled(key) {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}
