package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// daily returns one session of minutes per day over [from, to].
func daily(from, to time.Time, minutes float64) []Session {
	var out []Session
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, sess(d, minutes))
	}
	return out
}

func TestFlowStreak(t *testing.T) {
	t.Run("TooFewSessions", func(t *testing.T) {
		got := FlowStreak(repeat(2, at(12, 9, 0), 60), testNow)
		assert.False(t, got.HasEnoughData)
		assert.Empty(t, got.Last30Days)
		assert.Zero(t, got.CurrentStreak)
	})

	t.Run("CurrentAndRecord", func(t *testing.T) {
		april := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
		sessions := append(
			daily(april, april.AddDate(0, 0, 9), 60),
			daily(at(8, 9, 0), at(12, 9, 0), 60)...,
		)
		got := FlowStreak(sessions, testNow)
		require.True(t, got.HasEnoughData)
		require.Len(t, got.Last30Days, 30)

		assert.Equal(t, "2024-05-14", got.Last30Days[0].Date)
		assert.Equal(t, "2024-06-12", got.Last30Days[29].Date)
		assert.Equal(t, 30.0, got.Threshold)
		assert.Equal(t, 5, got.CurrentStreak)
		assert.Equal(t, 10, got.RecordStreak)
		assert.True(t, got.Last30Days[29].Filled)
		assert.False(t, got.Last30Days[24].Filled)
		assert.Equal(t, 60.0, got.Last30Days[29].Minutes)
	})

	t.Run("WeakDayBreaksStreak", func(t *testing.T) {
		sessions := []Session{
			sess(at(9, 9, 0), 60),
			sess(at(10, 9, 0), 60),
			sess(at(11, 9, 0), 10),
			sess(at(12, 9, 0), 60),
		}
		// mean = 47.5, threshold = 23.75
		got := FlowStreak(sessions, testNow)
		assert.Equal(t, 1, got.CurrentStreak)
		assert.Equal(t, 2, got.RecordStreak)
	})

	t.Run("MissingTodayEndsStreak", func(t *testing.T) {
		got := FlowStreak(daily(at(5, 9, 0), at(11, 9, 0), 45), testNow)
		assert.Zero(t, got.CurrentStreak)
		assert.Equal(t, 7, got.RecordStreak)
	})

	t.Run("NoRecentActivity", func(t *testing.T) {
		old := time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC)
		got := FlowStreak(daily(old, old.AddDate(0, 0, 4), 30), testNow)
		require.True(t, got.HasEnoughData)
		assert.Zero(t, got.Threshold)
		assert.Zero(t, got.CurrentStreak)
		assert.Zero(t, got.RecordStreak, "zero threshold fills nothing")
		for _, d := range got.Last30Days {
			assert.False(t, d.Filled)
		}
	})

	t.Run("RecordCoversCurrent", func(t *testing.T) {
		sessions := daily(at(1, 9, 0), at(12, 9, 0), 40)
		got := FlowStreak(sessions, testNow)
		assert.Equal(t, 12, got.CurrentStreak)
		assert.GreaterOrEqual(t, got.RecordStreak, got.CurrentStreak)
	})

	t.Run("SeveralSessionsSumPerDay", func(t *testing.T) {
		sessions := []Session{
			sess(at(12, 9, 0), 10),
			sess(at(12, 11, 0), 10),
			sess(at(12, 15, 0), 10),
			sess(at(11, 9, 0), 90),
		}
		// mean = 60, threshold = 30; today has exactly 30.
		got := FlowStreak(sessions, testNow)
		assert.Equal(t, 30.0, got.Last30Days[29].Minutes)
		assert.Equal(t, 2, got.CurrentStreak)
	})
}
