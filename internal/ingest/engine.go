// Package ingest imports focus-session exports into the store and
// keeps them current as files change.
package ingest

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/wesm/flowstate/internal/db"
)

const (
	batchSize  = 500
	maxWorkers = 8
)

// Engine discovers export files, decodes them on a worker pool and
// writes the results to the store in batches.
type Engine struct {
	db      *db.DB
	dirs    []string
	decoder Decoder

	runMu     sync.Mutex // serializes import runs
	mu        sync.RWMutex
	lastRun   time.Time
	lastStats Stats

	// skipCache holds files that decoded to nothing usable, keyed
	// by path with the mtime seen at the time. The file is retried
	// once its mtime changes.
	skipMu    sync.RWMutex
	skipCache map[string]int64
}

// NewEngine creates an import engine over dirs. Records without a
// user are attributed to defaultUser. The skip cache is seeded from
// the store so files rejected in an earlier run are not re-read.
func NewEngine(
	database *db.DB, dirs []string, defaultUser string,
) *Engine {
	skipCache := make(map[string]int64)
	if loaded, err := database.LoadSkippedFiles(); err == nil {
		skipCache = loaded
	} else {
		log.Printf("loading skip cache: %v", err)
	}
	return &Engine{
		db:        database,
		dirs:      dirs,
		decoder:   Decoder{DefaultUser: defaultUser},
		skipCache: skipCache,
	}
}

// Dirs returns the directories scanned by ImportAll.
func (e *Engine) Dirs() []string {
	return append([]string(nil), e.dirs...)
}

// LastRun returns when the last import finished.
func (e *Engine) LastRun() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRun
}

// LastStats returns the statistics of the last import.
func (e *Engine) LastStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStats
}

// ImportAll imports every export file under the engine's
// directories.
func (e *Engine) ImportAll() Stats {
	var files []string
	for _, d := range e.dirs {
		files = append(files, DiscoverFiles(d)...)
	}
	return e.run(files, true)
}

// ImportPaths imports the given files. Directories are expanded
// and paths without an export extension are ignored.
func (e *Engine) ImportPaths(paths []string) Stats {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			continue
		case info.IsDir():
			files = append(files, DiscoverFiles(p)...)
		case isExportFile(p):
			files = append(files, p)
		}
	}
	return e.run(files, false)
}

func (e *Engine) run(files []string, verbose bool) Stats {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	t0 := time.Now()
	stats := e.collectAndBatch(e.startWorkers(files), len(files))
	skipCount := e.persistSkipCache()

	if verbose || stats.Sessions > 0 {
		log.Printf(
			"import: %d file(s), %d session(s), %d task(s),"+
				" %d skipped, %d failed, %d rejected in %s",
			stats.Files, stats.Sessions, stats.Tasks,
			stats.Skipped, stats.Failed, stats.Rejected,
			time.Since(t0).Round(time.Millisecond),
		)
	}
	if verbose && skipCount > 0 {
		log.Printf("import: %d file(s) in skip cache", skipCount)
	}

	e.mu.Lock()
	e.lastRun = time.Now()
	e.lastStats = stats
	e.mu.Unlock()
	return stats
}

type importJob struct {
	processResult
	path string
}

type processResult struct {
	batch Batch
	skip  bool
	mtime int64
	err   error
}

// startWorkers fans file decoding out across a worker pool and
// returns a channel of results.
func (e *Engine) startWorkers(files []string) <-chan importJob {
	workers := min(max(runtime.NumCPU(), 2), maxWorkers)

	jobs := make(chan string, len(files))
	results := make(chan importJob, len(files))

	for range workers {
		go func() {
			for path := range jobs {
				results <- importJob{
					processResult: e.processFile(path),
					path:          path,
				}
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	return results
}

// collectAndBatch drains results and writes decoded rows in
// batches.
func (e *Engine) collectAndBatch(
	results <-chan importJob, total int,
) Stats {
	stats := Stats{Files: total}
	var pending Batch

	flush := func() {
		if err := e.db.UpsertTasks(pending.Tasks); err != nil {
			log.Printf("import: writing tasks: %v", err)
			stats.Failed++
		} else {
			stats.Tasks += len(pending.Tasks)
		}
		if err := e.db.UpsertSessions(pending.Sessions); err != nil {
			log.Printf("import: writing sessions: %v", err)
			stats.Failed++
		} else {
			stats.Sessions += len(pending.Sessions)
		}
		pending = Batch{}
	}

	for range total {
		r := <-results

		if r.err != nil {
			if r.mtime != 0 {
				e.cacheSkip(r.path, r.mtime)
			}
			log.Printf("import error: %v", r.err)
			stats.Failed++
			continue
		}
		if r.skip {
			stats.Skipped++
			continue
		}

		stats.warn(r.batch.Rejected...)
		if len(r.batch.Sessions) == 0 && len(r.batch.Tasks) == 0 {
			e.cacheSkip(r.path, r.mtime)
			continue
		}
		e.clearSkip(r.path)

		pending.Sessions = append(pending.Sessions, r.batch.Sessions...)
		pending.Tasks = append(pending.Tasks, r.batch.Tasks...)
		if len(pending.Sessions)+len(pending.Tasks) >= batchSize {
			flush()
		}
	}
	if len(pending.Sessions)+len(pending.Tasks) > 0 {
		flush()
	}
	return stats
}

func (e *Engine) processFile(path string) processResult {
	info, err := os.Stat(path)
	if err != nil {
		return processResult{err: fmt.Errorf("stat %s: %w", path, err)}
	}
	mtime := info.ModTime().UnixNano()

	e.skipMu.RLock()
	cachedMtime, cached := e.skipCache[path]
	e.skipMu.RUnlock()
	if cached && cachedMtime == mtime {
		return processResult{skip: true, mtime: mtime}
	}

	f, err := os.Open(path)
	if err != nil {
		return processResult{
			err: fmt.Errorf("open %s: %w", path, err), mtime: mtime,
		}
	}
	defer f.Close()

	var b Batch
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		b, err = e.decoder.DecodeJSONL(f, path)
	} else {
		b, err = e.decoder.DecodeJSON(f, path)
	}
	if err != nil {
		return processResult{err: err, mtime: mtime}
	}
	return processResult{batch: b, mtime: mtime}
}

func (e *Engine) cacheSkip(path string, mtime int64) {
	e.skipMu.Lock()
	e.skipCache[path] = mtime
	e.skipMu.Unlock()
}

func (e *Engine) clearSkip(path string) {
	e.skipMu.Lock()
	delete(e.skipCache, path)
	e.skipMu.Unlock()
}

// persistSkipCache writes the in-memory skip cache to the store
// and returns the number of entries.
func (e *Engine) persistSkipCache() int {
	e.skipMu.RLock()
	snapshot := make(map[string]int64, len(e.skipCache))
	maps.Copy(snapshot, e.skipCache)
	e.skipMu.RUnlock()

	if err := e.db.ReplaceSkippedFiles(snapshot); err != nil {
		log.Printf("persisting skip cache: %v", err)
	}
	return len(snapshot)
}
