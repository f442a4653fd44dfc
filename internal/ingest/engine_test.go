package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/dbtest"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func sessionLine(id string, day, minutes int) string {
	start := time.Date(2024, 6, day, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(minutes) * time.Minute)
	return fmt.Sprintf(
		`{"id":%q,"userId":"u1","startedAt":%q,"endedAt":%q,"durationSeconds":%d}`,
		id, start.Format(time.RFC3339), end.Format(time.RFC3339), minutes*60,
	)
}

func countSessions(t *testing.T, d *db.DB) int {
	t.Helper()
	page, err := d.ListSessions(context.Background(), db.SessionFilter{})
	require.NoError(t, err)
	return page.Total
}

func TestImportAll(t *testing.T) {
	d := dbtest.OpenTestDB(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"),
		sessionLine("s1", 1, 25),
		sessionLine("s2", 2, 30),
		`{"type":"task","id":"t1","userId":"u1","title":"Deep work"}`,
	)
	writeFile(t, filepath.Join(dir, "nested", "b.json"),
		`[`+sessionLine("s3", 3, 45)+`]`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden", "c.jsonl"), sessionLine("s4", 4, 10))

	e := NewEngine(d, []string{dir}, "u1")
	stats := e.ImportAll()

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 3, stats.Sessions)
	assert.Equal(t, 1, stats.Tasks)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 3, countSessions(t, d))
	assert.Equal(t, stats, e.LastStats())
	assert.False(t, e.LastRun().IsZero())

	got, err := d.GetSession(context.Background(), "s3")
	require.NoError(t, err)
	require.NotNil(t, got.SourcePath)
	assert.Equal(t, filepath.Join(dir, "nested", "b.json"), *got.SourcePath)

	// Re-importing is idempotent.
	e.ImportAll()
	assert.Equal(t, 3, countSessions(t, d))
}

func TestImportBatchesLargeFiles(t *testing.T) {
	d := dbtest.OpenTestDB(t)
	dir := t.TempDir()
	var lines []string
	for i := range batchSize + 25 {
		lines = append(lines, fmt.Sprintf(
			`{"userId":"u1","startedAt":%d,"endedAt":%d}`,
			int64(i)*3_600_000, int64(i)*3_600_000+1_500_000,
		))
	}
	writeFile(t, filepath.Join(dir, "big.jsonl"), lines...)

	stats := NewEngine(d, []string{dir}, "").ImportAll()
	assert.Equal(t, batchSize+25, stats.Sessions)
	assert.Equal(t, batchSize+25, countSessions(t, d))
}

func TestImportSkipCache(t *testing.T) {
	d := dbtest.OpenTestDB(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jsonl")
	writeFile(t, bad, `{"nothing":"useful"}`)

	e := NewEngine(d, []string{dir}, "u1")
	first := e.ImportAll()
	assert.Zero(t, first.Sessions)
	assert.Equal(t, 1, first.Rejected)

	persisted, err := d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Contains(t, persisted, bad)

	// A fresh engine picks the cache up from the store.
	second := NewEngine(d, []string{dir}, "u1").ImportAll()
	assert.Equal(t, 1, second.Skipped)
	assert.Zero(t, second.Rejected)

	// Rewriting the file changes its mtime and clears the entry.
	writeFile(t, bad, sessionLine("s1", 1, 25))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(bad, future, future))

	third := NewEngine(d, []string{dir}, "u1").ImportAll()
	assert.Equal(t, 1, third.Sessions)
	persisted, err = d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.NotContains(t, persisted, bad)
}

func TestImportMalformedDocumentFails(t *testing.T) {
	d := dbtest.OpenTestDB(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.json"), `{"sessions": [`)

	stats := NewEngine(d, []string{dir}, "u1").ImportAll()
	assert.Equal(t, 1, stats.Failed)

	persisted, err := d.LoadSkippedFiles()
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestImportPaths(t *testing.T) {
	d := dbtest.OpenTestDB(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	writeFile(t, a, sessionLine("s1", 1, 25))
	writeFile(t, filepath.Join(dir, "sub", "b.jsonl"), sessionLine("s2", 2, 25))
	writeFile(t, filepath.Join(dir, "readme.md"), "# not an export")

	e := NewEngine(d, nil, "u1")
	stats := e.ImportPaths([]string{
		a,
		filepath.Join(dir, "sub"),
		filepath.Join(dir, "readme.md"),
		filepath.Join(dir, "missing.jsonl"),
	})
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Sessions)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b.jsonl", "a.JSON", "x/c.jsonl", ".git/d.jsonl", "e.txt"} {
		writeFile(t, filepath.Join(dir, p), "{}")
	}
	got := DiscoverFiles(dir)
	want := []string{
		filepath.Join(dir, "a.JSON"),
		filepath.Join(dir, "b.jsonl"),
		filepath.Join(dir, "x", "c.jsonl"),
	}
	assert.Equal(t, want, got)
	assert.Empty(t, DiscoverFiles(filepath.Join(dir, "nope")))
}
