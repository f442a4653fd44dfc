package flow

import (
	"time"

	"github.com/wesm/flowstate/internal/timeutil"
)

const (
	// earnRatio is focus minutes per earned break minute.
	earnRatio         = 5
	freedomWindowDays = 7
)

// EarnedFreedomResult balances earned against used break time.
type EarnedFreedomResult struct {
	HasEnoughData  bool `json:"has_enough_data"`
	EarnedMinutes  int  `json:"earned_minutes"`
	UsedMinutes    int  `json:"used_minutes"`
	BalanceMinutes int  `json:"balance_minutes"`
	// Week totals cover the last 7 days and are always computed.
	WeekEarned int `json:"week_earned"`
	WeekUsed   int `json:"week_used"`
}

// EarnedFreedom credits one break minute per five focus minutes
// and subtracts the break time actually taken. Sums are rounded
// once at the end, not per session.
func EarnedFreedom(
	sessions []Session, now time.Time,
) EarnedFreedomResult {
	loc := now.Location()
	today := onDay(sessions, dateKey(now, loc), loc)
	week := startedSince(
		sessions, timeutil.DaysAgo(now, freedomWindowDays),
	)

	earned, used := freedomSums(today)
	weekEarned, weekUsed := freedomSums(week)

	res := EarnedFreedomResult{
		WeekEarned: roundInt(weekEarned),
		WeekUsed:   roundInt(weekUsed),
	}
	if len(today) == 0 {
		return res
	}
	res.HasEnoughData = true
	res.EarnedMinutes = roundInt(earned)
	res.UsedMinutes = roundInt(used)
	res.BalanceMinutes = roundInt(earned - used)
	return res
}

func freedomSums(sessions []Session) (earned, used float64) {
	for _, s := range sessions {
		earned += durationMinutes(s) / earnRatio
		used += breakMinutes(s)
	}
	return earned, used
}
