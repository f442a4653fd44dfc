package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory Source that counts fetches.
type fakeSource struct {
	sessions []Session
	tasks    []Task
	err      error
	calls    int
	lastUser string
}

func (f *fakeSource) Snapshot(
	_ context.Context, userID string,
) ([]Session, []Task, error) {
	f.calls++
	f.lastUser = userID
	return f.sessions, f.tasks, f.err
}

func richHistory() ([]Session, []Task) {
	tasks := []Task{{ID: "deep", Title: "Deep work"}}
	var sessions []Session
	for d := 1; d <= 12; d++ {
		for _, h := range []int{9, 11, 15} {
			opts := []func(*Session){withBreak(300)}
			if h == 9 {
				opts = append(opts, withTask("deep"))
			}
			sessions = append(sessions,
				sess(at(d, h, 0), float64(25+d%3*5), opts...))
		}
	}
	return sessions, tasks
}

func TestComputeSummary(t *testing.T) {
	sessions := []Session{
		sess(at(12, 9, 0), 30.25),
		sess(at(11, 9, 0), 30.25),
	}
	got := Compute(Input{Sessions: sessions, Now: testNow})
	assert.Equal(t, 2, got.Summary.TotalSessions)
	assert.Equal(t, 61, got.Summary.AllTimeMinutes)
	assert.Equal(t, testNow, got.GeneratedAt)
}

func TestComputeMatchesIndividualMetrics(t *testing.T) {
	sessions, tasks := richHistory()
	in := Input{Sessions: sessions, Tasks: tasks, Now: testNow, WeekOffset: -1}
	got := Compute(in)

	if diff := cmp.Diff(FlowStreak(sessions, testNow), got.FlowStreak); diff != "" {
		t.Errorf("FlowStreak mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(WeeklyWorkTime(sessions, -1, testNow), got.WeeklyWorkTime); diff != "" {
		t.Errorf("WeeklyWorkTime mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(TaskFlowHarmony(sessions, tasks, testNow), got.TaskFlowHarmony); diff != "" {
		t.Errorf("TaskFlowHarmony mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.WarmupPhase.HasEnoughData)
	assert.True(t, got.NaturalFlowWindow.HasEnoughData)
	assert.True(t, got.ResistancePoint.HasEnoughData)
	assert.Equal(t, "Deep work", got.TaskFlowHarmony.Tasks[0].TaskTitle)
}

func TestComputeIsIdempotent(t *testing.T) {
	sessions, tasks := richHistory()
	in := Input{Sessions: sessions, Tasks: tasks, Now: testNow}
	first := Compute(in)
	second := Compute(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestComputeEmptySnapshot(t *testing.T) {
	got := Compute(Input{Now: testNow})
	assert.Zero(t, got.Summary.TotalSessions)
	assert.False(t, got.DailyFlowWaves.HasEnoughData)
	assert.False(t, got.WeeklyWorkTime.HasEnoughData)
	assert.Len(t, got.WeeklyWorkTime.Days, 7)
	assert.False(t, got.FocusDensity.HasEnoughData)
	assert.False(t, got.ResistancePoint.HasEnoughData)
	assert.False(t, got.EarnedFreedom.HasEnoughData)
	assert.False(t, got.NaturalFlowWindow.HasEnoughData)
	assert.False(t, got.FlowStreak.HasEnoughData)
	assert.False(t, got.TaskFlowHarmony.HasEnoughData)
	assert.False(t, got.WarmupPhase.HasEnoughData)
}

func TestRun(t *testing.T) {
	sessions, tasks := richHistory()

	t.Run("FetchesOnce", func(t *testing.T) {
		src := &fakeSource{sessions: sessions, tasks: tasks}
		got, err := Run(context.Background(), src, "u1", testNow, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, src.calls)
		assert.Equal(t, "u1", src.lastUser)
		assert.Equal(t, len(sessions), got.Summary.TotalSessions)
	})

	t.Run("PropagatesSourceError", func(t *testing.T) {
		boom := errors.New("boom")
		src := &fakeSource{err: boom}
		_, err := Run(context.Background(), src, "u1", testNow, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}
