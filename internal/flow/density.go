package flow

import (
	"math"
	"sort"
	"time"
)

// blockGap is the idle time after which a new focus block starts.
const blockGap = 30 * time.Minute

// Focus density labels, best first.
const (
	DensitySharp          = "sharp"
	DensityGood           = "good"
	DensityScatteredStart = "scattered_start"
	DensityScatteredMind  = "scattered_mind"
)

// FocusDensityResult rates how compact today's focus time was.
type FocusDensityResult struct {
	HasEnoughData bool   `json:"has_enough_data"`
	Percentage    int    `json:"percentage"`
	Label         string `json:"label"`
	SessionCount  int    `json:"session_count"`
	BlockCount    int    `json:"block_count"`
}

// FocusDensity groups today's sessions into blocks separated by
// more than 30 idle minutes and reports the focus-weighted share of
// each block's wall-clock span spent focusing.
func FocusDensity(
	sessions []Session, now time.Time,
) FocusDensityResult {
	loc := now.Location()
	today := onDay(sessions, dateKey(now, loc), loc)

	switch len(today) {
	case 0:
		return FocusDensityResult{Label: DensityScatteredMind}
	case 1:
		return FocusDensityResult{
			HasEnoughData: true,
			Percentage:    100,
			Label:         DensitySharp,
			SessionCount:  1,
			BlockCount:    1,
		}
	}

	sort.SliceStable(today, func(i, j int) bool {
		return today[i].StartedAt.Before(today[j].StartedAt)
	})

	blocks := [][]Session{{today[0]}}
	for _, s := range today[1:] {
		cur := blocks[len(blocks)-1]
		prev := cur[len(cur)-1]
		if s.StartedAt.Sub(prev.EndedAt) > blockGap {
			blocks = append(blocks, []Session{s})
			continue
		}
		blocks[len(blocks)-1] = append(cur, s)
	}

	var weighted, focusTotal float64
	for _, b := range blocks {
		focus := 0.0
		for _, s := range b {
			focus += durationMinutes(s)
		}
		weighted += blockDensity(b, focus) * focus
		focusTotal += focus
	}

	pct := roundInt(safeDiv(weighted, focusTotal))
	return FocusDensityResult{
		HasEnoughData: true,
		Percentage:    pct,
		Label:         densityLabel(pct),
		SessionCount:  len(today),
		BlockCount:    len(blocks),
	}
}

// blockDensity returns the focus share of a block's span, 100 for
// a lone session.
func blockDensity(b []Session, focus float64) float64 {
	if len(b) == 1 {
		return 100
	}
	span := b[len(b)-1].EndedAt.Sub(b[0].StartedAt).Minutes()
	if span <= 0 {
		return 0
	}
	return math.Min(100, focus/span*100)
}

func densityLabel(pct int) string {
	switch {
	case pct >= 80:
		return DensitySharp
	case pct >= 60:
		return DensityGood
	case pct >= 40:
		return DensityScatteredStart
	default:
		return DensityScatteredMind
	}
}
