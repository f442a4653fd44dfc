package ingest

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flowstate/internal/db"
)

func decodeLines(t *testing.T, lines ...string) Batch {
	t.Helper()
	d := Decoder{DefaultUser: "me"}
	b, err := d.DecodeJSONL(strings.NewReader(strings.Join(lines, "\n")), "x.jsonl")
	require.NoError(t, err)
	return b
}

func TestDecodeJSONLSession(t *testing.T) {
	b := decodeLines(t,
		`{"id":"s1","userId":"u1","startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T09:30:00Z","durationSeconds":1500,"breakDurationSeconds":300,"taskId":"t1"}`,
	)
	require.Empty(t, b.Rejected)
	want := []db.Session{{
		ID:                   "s1",
		UserID:               "u1",
		StartedAt:            "2024-06-10T09:00:00Z",
		EndedAt:              "2024-06-10T09:30:00Z",
		DurationSeconds:      1500,
		BreakDurationSeconds: 300,
		TaskID:               strPtr("t1"),
		SourcePath:           strPtr("x.jsonl"),
	}}
	if diff := cmp.Diff(want, b.Sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func strPtr(s string) *string { return &s }

func TestDecodeDefaultsAndDerivedFields(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	b := decodeLines(t,
		`{"started_at":`+strconv.FormatInt(start.UnixMilli(), 10)+`,"ended_at":"2024-06-10T09:40:00Z","break_duration_seconds":600}`,
	)
	require.Empty(t, b.Rejected)
	require.Len(t, b.Sessions, 1)
	s := b.Sessions[0]
	assert.Equal(t, "me", s.UserID)
	assert.Equal(t, "2024-06-10T09:00:00Z", s.StartedAt)
	assert.Equal(t, 1800, s.DurationSeconds)
	assert.Equal(t, SessionID("me", start, start.Add(40*time.Minute)), s.ID)
	assert.Nil(t, s.TaskID)
}

func TestDecodeDerivedDurationClampsAtZero(t *testing.T) {
	b := decodeLines(t,
		`{"startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T09:05:00Z","breakDurationSeconds":600}`,
	)
	require.Len(t, b.Sessions, 1)
	assert.Zero(t, b.Sessions[0].DurationSeconds)
}

func TestDecodeRejections(t *testing.T) {
	b := decodeLines(t,
		`not json`,
		`{"startedAt":"2024-06-10T09:00:00Z"}`,
		`{"startedAt":"2024-06-10T10:00:00Z","endedAt":"2024-06-10T09:00:00Z"}`,
		`{"startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T10:00:00Z","durationSeconds":-5}`,
		`{"type":"mood","value":3}`,
		`{"type":"task","title":"no id"}`,
		`[1,2]`,
		`{"startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T09:25:00Z"}`,
	)
	assert.Len(t, b.Sessions, 1)
	require.Len(t, b.Rejected, 7)
	assert.Contains(t, b.Rejected[0], "x.jsonl:1: invalid json")
	assert.Contains(t, b.Rejected[1], "endedAt")
	assert.Contains(t, b.Rejected[2], "ended_at before started_at")
	assert.Contains(t, b.Rejected[3], "negative duration_seconds")
	assert.Contains(t, b.Rejected[4], `unknown record type "mood"`)
	assert.Contains(t, b.Rejected[5], "task without id")
	assert.Contains(t, b.Rejected[6], "not an object")
}

func TestDecodeMissingUserWithoutDefault(t *testing.T) {
	d := Decoder{}
	b, err := d.DecodeJSONL(strings.NewReader(
		`{"startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T09:25:00Z"}`,
	), "x.jsonl")
	require.NoError(t, err)
	assert.Empty(t, b.Sessions)
	require.Len(t, b.Rejected, 1)
	assert.Contains(t, b.Rejected[0], "missing user_id")
}

func TestDecodeTasks(t *testing.T) {
	b := decodeLines(t,
		`{"type":"task","id":"t1","title":"  Deep work  "}`,
		`{"type":"TASK","taskId":"t2","userId":"u2","name":"Reading"}`,
	)
	require.Empty(t, b.Rejected)
	assert.Equal(t, []db.Task{
		{ID: "t1", UserID: "me", Title: "Deep work"},
		{ID: "t2", UserID: "u2", Title: "Reading"},
	}, b.Tasks)
}

func TestDecodeJSONDocuments(t *testing.T) {
	d := Decoder{DefaultUser: "me"}
	sess := `{"startedAt":"2024-06-10T09:00:00Z","endedAt":"2024-06-10T09:25:00Z"}`

	tests := []struct {
		name     string
		doc      string
		sessions int
		tasks    int
		rejected int
	}{
		{"SingleRecord", sess, 1, 0, 0},
		{"Array", `[` + sess + `,{"type":"task","id":"t","title":"T"}]`, 1, 1, 0},
		{"Envelope", `{"tasks":[{"id":"t","title":"T"}],"sessions":[` + sess + `,{"bad":true}]}`, 1, 1, 1},
		{"EmptyArray", `[]`, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := d.DecodeJSON(strings.NewReader(tt.doc), "x.json")
			require.NoError(t, err)
			assert.Len(t, b.Sessions, tt.sessions)
			assert.Len(t, b.Tasks, tt.tasks)
			assert.Len(t, b.Rejected, tt.rejected)
		})
	}

	_, err := d.DecodeJSON(strings.NewReader(`{"broken"`), "x.json")
	assert.Error(t, err)
	_, err = d.DecodeJSON(strings.NewReader(`42`), "x.json")
	assert.Error(t, err)
}

func TestSessionIDStable(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)
	a := SessionID("u1", start, end)
	assert.Equal(t, a, SessionID("u1", start.In(time.FixedZone("X", 3600)), end))
	assert.NotEqual(t, a, SessionID("u2", start, end))
	assert.Len(t, a, 36)
}
