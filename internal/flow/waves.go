package flow

import (
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

const (
	wavesWindowDays  = 14
	wavesMinSessions = 5
	peakFactor       = 1.3
	troughFactor     = 0.7
)

// Hour levels for DailyFlowWaves slots.
const (
	LevelPeak   = "peak"
	LevelTrough = "trough"
	LevelNormal = "normal"
)

// HourSlot is one hour of the day with its focus minutes.
type HourSlot struct {
	Hour         int     `json:"hour"`
	TotalMinutes float64 `json:"total_minutes"`
	Level        string  `json:"level"`
}

// DailyFlowWavesResult describes when in the day focus happens.
type DailyFlowWavesResult struct {
	HasEnoughData bool       `json:"has_enough_data"`
	Slots         []HourSlot `json:"slots"`
	PeakHour      *int       `json:"peak_hour"`
	TroughHour    *int       `json:"trough_hour"`
}

// DailyFlowWaves buckets the last 14 days of focus minutes by local
// start hour and labels each hour relative to the mean of the
// active hours.
func DailyFlowWaves(
	sessions []Session, now time.Time,
) DailyFlowWavesResult {
	loc := now.Location()
	recent := startedSince(
		sessions, timeutil.DaysAgo(now, wavesWindowDays),
	)
	if len(recent) < wavesMinSessions {
		return DailyFlowWavesResult{Slots: []HourSlot{}}
	}

	var totals [24]float64
	for _, s := range recent {
		totals[hourOf(s.StartedAt, loc)] += durationMinutes(s)
	}

	var active []float64
	for _, v := range totals {
		if v > 0 {
			active = append(active, v)
		}
	}
	avg := mean(active)

	slots := make([]HourSlot, 24)
	peak, trough := 0, -1
	for h, v := range totals {
		level := LevelNormal
		switch {
		case v > avg*peakFactor:
			level = LevelPeak
		case v == 0 || v < avg*troughFactor:
			level = LevelTrough
		}
		slots[h] = HourSlot{
			Hour:         h,
			TotalMinutes: round1(v),
			Level:        level,
		}
		if v > totals[peak] {
			peak = h
		}
		if v > 0 && (trough < 0 || v < totals[trough]) {
			trough = h
		}
	}

	res := DailyFlowWavesResult{
		HasEnoughData: true,
		Slots:         slots,
		PeakHour:      &peak,
	}
	if trough >= 0 {
		res.TroughHour = &trough
	}
	return res
}
