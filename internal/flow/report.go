package flow

import (
	"context"
	"fmt"
	"time"
)

// Summary is a lightweight overview of the snapshot.
type Summary struct {
	TotalSessions  int `json:"total_sessions"`
	AllTimeMinutes int `json:"all_time_minutes"`
}

// Report combines every metric computed from one snapshot.
type Report struct {
	GeneratedAt       time.Time               `json:"generated_at"`
	Summary           Summary                 `json:"summary"`
	DailyFlowWaves    DailyFlowWavesResult    `json:"daily_flow_waves"`
	WeeklyWorkTime    WeeklyWorkTimeResult    `json:"weekly_work_time"`
	FocusDensity      FocusDensityResult      `json:"focus_density"`
	ResistancePoint   ResistancePointResult   `json:"resistance_point"`
	EarnedFreedom     EarnedFreedomResult     `json:"earned_freedom"`
	NaturalFlowWindow NaturalFlowWindowResult `json:"natural_flow_window"`
	FlowStreak        FlowStreakResult        `json:"flow_streak"`
	TaskFlowHarmony   TaskFlowHarmonyResult   `json:"task_flow_harmony"`
	WarmupPhase       WarmupPhaseResult       `json:"warmup_phase"`
}

// Compute runs all nine metrics against the same snapshot.
func Compute(in Input) Report {
	total := 0.0
	for _, s := range in.Sessions {
		total += durationMinutes(s)
	}
	return Report{
		GeneratedAt: in.Now,
		Summary: Summary{
			TotalSessions:  len(in.Sessions),
			AllTimeMinutes: roundInt(total),
		},
		DailyFlowWaves:    DailyFlowWaves(in.Sessions, in.Now),
		WeeklyWorkTime:    WeeklyWorkTime(in.Sessions, in.WeekOffset, in.Now),
		FocusDensity:      FocusDensity(in.Sessions, in.Now),
		ResistancePoint:   ResistancePoint(in.Sessions, in.Now),
		EarnedFreedom:     EarnedFreedom(in.Sessions, in.Now),
		NaturalFlowWindow: NaturalFlowWindow(in.Sessions, in.Now),
		FlowStreak:        FlowStreak(in.Sessions, in.Now),
		TaskFlowHarmony:   TaskFlowHarmony(in.Sessions, in.Tasks, in.Now),
		WarmupPhase:       WarmupPhase(in.Sessions, in.Now),
	}
}

// Run fetches userID's snapshot from src once and computes the
// full report. Nothing is cached between calls.
func Run(
	ctx context.Context, src Source, userID string,
	now time.Time, weekOffset int,
) (Report, error) {
	sessions, tasks, err := src.Snapshot(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf(
			"loading snapshot for %s: %w", userID, err,
		)
	}
	return Compute(Input{
		Sessions:   sessions,
		Tasks:      tasks,
		Now:        now,
		WeekOffset: weekOffset,
	}), nil
}
