package flow

import "time"

const (
	successMinutes       = 20
	warmupMinSessions    = 30
	warmupPrevMinimum    = 10
	warmupFraction       = 0.22
	maxVariationForTrust = 0.6
)

// WarmupPhaseResult estimates how long it takes to settle in.
type WarmupPhaseResult struct {
	HasEnoughData    bool     `json:"has_enough_data"`
	AvgWarmupMinutes float64  `json:"avg_warmup_minutes"`
	PrevMonthWarmup  *float64 `json:"prev_month_warmup"`
	ChangeMinutes    *float64 `json:"change_minutes"`
}

// WarmupPhase models warm-up as a fixed fraction of the mean length
// of successful (20+ minute) sessions. Histories whose successful
// lengths vary too much (coefficient of variation above 0.6) are
// reported as insufficient.
//
// The previous month is matched by month number alone, so last
// December also picks up earlier Decembers.
func WarmupPhase(
	sessions []Session, now time.Time,
) WarmupPhaseResult {
	loc := now.Location()
	var all, prev []float64
	prevMonth := time.Month((int(now.Month())+10)%12 + 1)
	for _, s := range sessions {
		m := durationMinutes(s)
		if m < successMinutes {
			continue
		}
		all = append(all, m)
		if s.StartedAt.In(loc).Month() == prevMonth {
			prev = append(prev, m)
		}
	}
	if len(all) < warmupMinSessions {
		return WarmupPhaseResult{}
	}

	avg := mean(all)
	if safeDiv(stdDev(all, avg), avg) > maxVariationForTrust {
		return WarmupPhaseResult{}
	}

	res := WarmupPhaseResult{
		HasEnoughData:    true,
		AvgWarmupMinutes: round1(avg * warmupFraction),
	}
	if len(prev) >= warmupPrevMinimum {
		raw := mean(prev) * warmupFraction
		p := round1(raw)
		change := round1(res.AvgWarmupMinutes - raw)
		res.PrevMonthWarmup = &p
		res.ChangeMinutes = &change
	}
	return res
}
