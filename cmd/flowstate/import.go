package main

import (
	"log"
	"os"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/ingest"
)

// runImport imports the given files and directories, or the
// configured import directories when none are given.
func runImport(args []string) {
	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	database := mustOpenDB(cfg)
	defer database.Close()

	engine := ingest.NewEngine(
		database, cfg.ResolveImportDirs(), cfg.DefaultUser,
	)
	var stats ingest.Stats
	if len(args) == 0 {
		stats = engine.ImportAll()
	} else {
		stats = engine.ImportPaths(args)
	}
	printImportStats(os.Stdout, stats)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
