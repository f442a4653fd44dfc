package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flowstate/internal/dbtest"
)

func TestSkippedFiles_RoundTrip(t *testing.T) {
	d := dbtest.OpenTestDB(t)

	loaded, err := d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	entries := map[string]int64{
		"/exports/a.jsonl": 100,
		"/exports/b.json":  200,
	}
	require.NoError(t, d.ReplaceSkippedFiles(entries))

	loaded, err = d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestSkippedFiles_ReplaceOverwrites(t *testing.T) {
	d := dbtest.OpenTestDB(t)

	require.NoError(t, d.ReplaceSkippedFiles(map[string]int64{
		"/a.jsonl": 100,
		"/b.jsonl": 200,
	}))
	require.NoError(t, d.ReplaceSkippedFiles(map[string]int64{
		"/c.jsonl": 300,
	}))

	loaded, err := d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"/c.jsonl": 300}, loaded)
}

func TestSkippedFiles_EmptyReplaceClears(t *testing.T) {
	d := dbtest.OpenTestDB(t)

	require.NoError(t, d.ReplaceSkippedFiles(map[string]int64{"/a.jsonl": 1}))
	require.NoError(t, d.ReplaceSkippedFiles(map[string]int64{}))

	loaded, err := d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
