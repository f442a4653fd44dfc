package flow

import (
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

// WeekDay is one day of the WeeklyWorkTime breakdown.
type WeekDay struct {
	Date         string `json:"date"`
	DayName      string `json:"day_name"`
	TotalMinutes int    `json:"total_minutes"`
}

// WeeklyWorkTimeResult is always populated, even without data.
type WeeklyWorkTimeResult struct {
	HasEnoughData    bool      `json:"has_enough_data"`
	WeekOffset       int       `json:"week_offset"`
	WeekStart        string    `json:"week_start"`
	WeekLabel        string    `json:"week_label"`
	Days             []WeekDay `json:"days"`
	WeekTotalMinutes int       `json:"week_total_minutes"`
}

// WeeklyWorkTime totals focus minutes per day for the Monday to
// Sunday week selected by weekOffset (0 = this week, negative =
// past weeks). Forward offsets are the caller's to reject.
func WeeklyWorkTime(
	sessions []Session, weekOffset int, now time.Time,
) WeeklyWorkTimeResult {
	loc := now.Location()
	monday := timeutil.WeekStart(now).AddDate(0, 0, weekOffset*7)
	sunday := monday.AddDate(0, 0, 6)
	next := monday.AddDate(0, 0, 7)

	index := make(map[string]int, 7)
	days := make([]WeekDay, 7)
	raw := make([]float64, 7)
	for i := range days {
		d := monday.AddDate(0, 0, i)
		key := d.Format(timeutil.DateLayout)
		index[key] = i
		days[i] = WeekDay{Date: key, DayName: dayName(d.Weekday())}
	}

	res := WeeklyWorkTimeResult{
		WeekOffset: weekOffset,
		WeekStart:  days[0].Date,
		WeekLabel:  weekLabel(monday, sunday),
	}
	for _, s := range sessions {
		if i, ok := index[dateKey(s.StartedAt, loc)]; ok {
			raw[i] += durationMinutes(s)
		}
		if !s.StartedAt.Before(monday) && s.StartedAt.Before(next) {
			res.HasEnoughData = true
		}
	}
	for i := range days {
		days[i].TotalMinutes = roundInt(raw[i])
		res.WeekTotalMinutes += days[i].TotalMinutes
	}
	res.Days = days
	return res
}

// weekLabel renders "D Mon – D Mon" without a year.
func weekLabel(from, to time.Time) string {
	return from.Format("2 Jan") + " – " + to.Format("2 Jan")
}
