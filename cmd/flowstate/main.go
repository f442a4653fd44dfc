package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/flow"
	"github.com/wesm/flowstate/internal/ingest"
	"github.com/wesm/flowstate/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	periodicImportInterval = 15 * time.Minute
	shutdownTimeout        = 10 * time.Second
	maxLogSize             = 10 << 20
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "import":
			runImport(os.Args[2:])
			return
		case "report":
			runReport(os.Args[2:])
			return
		case "prune":
			runPrune(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("flowstate %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`flowstate %s - focus session analytics

Imports focus session exports into SQLite and serves flow
metrics (daily waves, streaks, warmup and more) over a local API.

Usage:
  flowstate [flags]            Start the server (default command)
  flowstate serve [flags]      Start the server (explicit)
  flowstate import [paths]     Import export files or directories
  flowstate report [flags]     Print the flow report as JSON
  flowstate prune [flags]      Delete sessions older than a cutoff
  flowstate version            Show version information
  flowstate help               Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8090)
  -tz string          IANA timezone for day boundaries
  -user string        Default user for reports and imports
  -import-dir string  Directory of session exports to import
  -no-watch           Don't watch the import directory

Report flags:
  -user string        User to report on
  -tz string          IANA timezone for day boundaries
  -metric string      Print a single metric instead of the full report
  -week int           Week offset for weekly_work_time (0 or negative)

Prune flags:
  -before string      Sessions that started before this date (YYYY-MM-DD)
  -older-than int     Sessions that started more than N days ago
  -user string        Whose sessions to prune
  -dry-run            Show what would be pruned without deleting
  -yes                Skip confirmation prompt

Environment variables:
  FLOWSTATE_DATA_DIR      Data directory (database, config, log)
  FLOWSTATE_IMPORT_DIR    Directory of session exports
  FLOWSTATE_TIMEZONE      IANA timezone for day boundaries
  FLOWSTATE_USER          Default user

Data is stored in ~/.flowstate/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	setupLogFile(cfg.DataDir)
	database := mustOpenDB(cfg)
	defer database.Close()

	engine := ingest.NewEngine(
		database, cfg.ResolveImportDirs(), cfg.DefaultUser,
	)
	runInitialImport(engine)

	stopWatcher := func() {}
	if !cfg.NoWatch {
		stopWatcher = startFileWatcher(cfg, engine)
	}
	defer stopWatcher()

	go startPeriodicImport(engine)

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, database, engine,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
		server.WithClock(flow.SystemClock(cfg.Location())),
	)

	fmt.Printf("flowstate %s listening at http://%s:%d\n",
		version, cfg.Host, cfg.Port)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("flowstate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: flowstate [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustOpenDB(cfg config.Config) *db.DB {
	database, err := openDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return database
}

func openDB(cfg config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.CursorSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(cfg.CursorSecret)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("invalid cursor secret: %w", err)
		}
		database.SetCursorSecret(secret)
	}
	return database, nil
}

func runInitialImport(engine *ingest.Engine) {
	fmt.Println("Running initial import...")
	stats := engine.ImportAll()
	server.RecordImport(stats)
	printImportStats(os.Stdout, stats)
}

func printImportStats(w io.Writer, stats ingest.Stats) {
	fmt.Fprintf(w,
		"Import complete: %d files, %d sessions, %d tasks"+
			" (%d skipped, %d failed, %d rejected)\n",
		stats.Files, stats.Sessions, stats.Tasks,
		stats.Skipped, stats.Failed, stats.Rejected,
	)
	for _, msg := range stats.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
}

func startFileWatcher(
	cfg config.Config, engine *ingest.Engine,
) func() {
	onChange := func(paths []string) {
		server.RecordImport(engine.ImportPaths(paths))
	}
	watcher, err := ingest.NewWatcher(cfg.WatchDebounce, onChange)
	if err != nil {
		log.Printf("warning: file watcher unavailable: %v", err)
		return func() {}
	}

	for _, dir := range engine.Dirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if _, unwatched, err := watcher.WatchRecursive(dir); err != nil {
			log.Printf("warning: watching %s: %v", dir, err)
		} else if unwatched > 0 {
			log.Printf("warning: %d directories under %s not watched",
				unwatched, dir)
		}
	}
	watcher.Start()
	return watcher.Stop
}

func startPeriodicImport(engine *ingest.Engine) {
	ticker := time.NewTicker(periodicImportInterval)
	defer ticker.Stop()
	for range ticker.C {
		log.Println("Running scheduled import...")
		server.RecordImport(engine.ImportAll())
	}
}

// setupLogFile tees the standard logger into debug.log under dir.
// A file that has grown past maxLogSize is started over.
func setupLogFile(dir string) {
	path := filepath.Join(dir, "debug.log")
	truncateLogFile(path, maxLogSize)
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
	)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

// truncateLogFile empties path when it is larger than limit.
// Symlinks are left alone.
func truncateLogFile(path string, limit int64) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if info.Size() <= limit {
		return
	}
	if err := os.Truncate(path, 0); err != nil {
		log.Printf("warning: truncating log file: %v", err)
	}
}
