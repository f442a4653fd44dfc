package flow

import (
	"math"
	"time"
)

const (
	windowMinSessions = 20
	binWidth          = 5
	maxBins           = 30
)

// DurationBucket counts sessions with RangeStart <= d < RangeEnd.
type DurationBucket struct {
	RangeStart int  `json:"range_start"`
	RangeEnd   int  `json:"range_end"`
	Count      int  `json:"count"`
	IsDominant bool `json:"is_dominant"`
}

// NaturalFlowWindowResult locates the session lengths a user
// naturally settles into.
type NaturalFlowWindowResult struct {
	HasEnoughData       bool             `json:"has_enough_data"`
	Buckets             []DurationBucket `json:"buckets"`
	DominantWindowStart int              `json:"dominant_window_start"`
	DominantWindowEnd   int              `json:"dominant_window_end"`
	Median              int              `json:"median"`
}

// NaturalFlowWindow histograms session lengths into 5-minute bins
// and marks the densest run of two or three adjacent bins.
//
// Windows are scanned length-major (all 2-bin windows, then all
// 3-bin windows) and a candidate only replaces the best on a
// strictly greater sum, so the earliest window wins ties.
func NaturalFlowWindow(
	sessions []Session, _ time.Time,
) NaturalFlowWindowResult {
	if len(sessions) < windowMinSessions {
		return NaturalFlowWindowResult{Buckets: []DurationBucket{}}
	}

	durs := make([]float64, len(sessions))
	maxDur := 0.0
	for i, s := range sessions {
		durs[i] = durationMinutes(s)
		maxDur = math.Max(maxDur, durs[i])
	}

	n := min(int(maxDur/binWidth)+1, maxBins)
	counts := make([]int, n)
	for _, d := range durs {
		// Durations past the last bin fall outside the histogram.
		if i := int(d / binWidth); d >= 0 && i < n {
			counts[i]++
		}
	}

	bestStart, bestLen, bestSum := -1, 0, 0
	for _, length := range []int{2, 3} {
		for start := 0; start+length <= n; start++ {
			sum := 0
			for _, c := range counts[start : start+length] {
				sum += c
			}
			if sum > bestSum {
				bestStart, bestLen, bestSum = start, length, sum
			}
		}
	}

	res := NaturalFlowWindowResult{
		HasEnoughData: true,
		Buckets:       []DurationBucket{},
		Median:        roundInt(median(durs)),
	}
	if bestStart >= 0 {
		res.DominantWindowStart = bestStart * binWidth
		res.DominantWindowEnd = (bestStart + bestLen) * binWidth
	}
	for i, c := range counts {
		dominant := bestStart >= 0 &&
			i >= bestStart && i < bestStart+bestLen
		if c == 0 && !dominant {
			continue
		}
		res.Buckets = append(res.Buckets, DurationBucket{
			RangeStart: i * binWidth,
			RangeEnd:   (i + 1) * binWidth,
			Count:      c,
			IsDominant: dominant,
		})
	}
	return res
}
