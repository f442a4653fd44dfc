package flow

import (
	"errors"
	"fmt"
)

// ErrUnknownMetric is returned for identifiers outside the
// closed metric set.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric identifies one of the nine analytics transforms.
type Metric string

const (
	MetricDailyFlowWaves    Metric = "daily_flow_waves"
	MetricWeeklyWorkTime    Metric = "weekly_work_time"
	MetricFocusDensity      Metric = "focus_density"
	MetricResistancePoint   Metric = "resistance_point"
	MetricEarnedFreedom     Metric = "earned_freedom"
	MetricNaturalFlowWindow Metric = "natural_flow_window"
	MetricFlowStreak        Metric = "flow_streak"
	MetricTaskFlowHarmony   Metric = "task_flow_harmony"
	MetricWarmupPhase       Metric = "warmup_phase"
)

var allMetrics = []Metric{
	MetricDailyFlowWaves,
	MetricWeeklyWorkTime,
	MetricFocusDensity,
	MetricResistancePoint,
	MetricEarnedFreedom,
	MetricNaturalFlowWindow,
	MetricFlowStreak,
	MetricTaskFlowHarmony,
	MetricWarmupPhase,
}

// Metrics returns every metric in canonical order.
func Metrics() []Metric {
	return append([]Metric(nil), allMetrics...)
}

// ParseMetric validates a metric identifier.
func ParseMetric(s string) (Metric, error) {
	for _, m := range allMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Evaluate runs a single metric against in. The result is the
// metric's own result struct.
func Evaluate(m Metric, in Input) (any, error) {
	switch m {
	case MetricDailyFlowWaves:
		return DailyFlowWaves(in.Sessions, in.Now), nil
	case MetricWeeklyWorkTime:
		return WeeklyWorkTime(in.Sessions, in.WeekOffset, in.Now), nil
	case MetricFocusDensity:
		return FocusDensity(in.Sessions, in.Now), nil
	case MetricResistancePoint:
		return ResistancePoint(in.Sessions, in.Now), nil
	case MetricEarnedFreedom:
		return EarnedFreedom(in.Sessions, in.Now), nil
	case MetricNaturalFlowWindow:
		return NaturalFlowWindow(in.Sessions, in.Now), nil
	case MetricFlowStreak:
		return FlowStreak(in.Sessions, in.Now), nil
	case MetricTaskFlowHarmony:
		return TaskFlowHarmony(in.Sessions, in.Tasks, in.Now), nil
	case MetricWarmupPhase:
		return WarmupPhase(in.Sessions, in.Now), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
}
