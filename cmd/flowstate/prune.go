package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/timeutil"
)

// PruneConfig holds parsed CLI options for the prune command.
type PruneConfig struct {
	User      string
	Before    string
	OlderThan int
	DryRun    bool
	Yes       bool
}

func parsePruneFlags(args []string) (PruneConfig, error) {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	user := fs.String("user", "", "Whose sessions to prune")
	before := fs.String(
		"before", "",
		"Sessions that started before this date (YYYY-MM-DD)",
	)
	olderThan := fs.Int(
		"older-than", 0,
		"Sessions that started more than N days ago",
	)
	dryRun := fs.Bool(
		"dry-run", false,
		"Show what would be pruned without deleting",
	)
	yes := fs.Bool("yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return PruneConfig{}, err
	}

	cfg := PruneConfig{
		User:      *user,
		Before:    *before,
		OlderThan: *olderThan,
		DryRun:    *dryRun,
		Yes:       *yes,
	}
	switch {
	case cfg.Before == "" && cfg.OlderThan == 0:
		return PruneConfig{}, fmt.Errorf(
			"a cutoff is required\nuse --before or --older-than",
		)
	case cfg.Before != "" && cfg.OlderThan != 0:
		return PruneConfig{}, fmt.Errorf(
			"--before and --older-than are mutually exclusive",
		)
	case cfg.OlderThan < 0:
		return PruneConfig{}, fmt.Errorf("older-than must be positive")
	}
	if cfg.Before != "" {
		if _, err := time.Parse(timeutil.DateLayout, cfg.Before); err != nil {
			return PruneConfig{}, fmt.Errorf(
				"invalid --before date %q: use YYYY-MM-DD", cfg.Before,
			)
		}
	}
	return cfg, nil
}

// Cutoff resolves the prune boundary as local midnight in loc.
func (c PruneConfig) Cutoff(now time.Time, loc *time.Location) time.Time {
	if c.Before != "" {
		t, _ := time.ParseInLocation(timeutil.DateLayout, c.Before, loc)
		return t
	}
	return timeutil.DaysAgo(now.In(loc), c.OlderThan)
}

// Pruner executes the prune workflow against a database.
type Pruner struct {
	DB  *db.DB
	Out io.Writer
	In  io.Reader
	Now func() time.Time
	Loc *time.Location
}

// Prune counts the sessions before the cutoff and deletes them.
func (p *Pruner) Prune(cfg PruneConfig) error {
	cutoff := cfg.Cutoff(p.Now(), p.Loc)
	n, err := p.DB.CountSessionsBefore(
		context.Background(), cfg.User, cutoff,
	)
	if err != nil {
		return fmt.Errorf("finding candidates: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(p.Out, "No sessions match the given cutoff.")
		return nil
	}

	fmt.Fprintf(p.Out,
		"Found %d sessions for %s started before %s\n",
		n, cfg.User, cutoff.Format(timeutil.DateLayout),
	)
	if cfg.DryRun {
		fmt.Fprintln(p.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf("\nDelete %d sessions?", n)
		if !confirm(p.In, p.Out, msg) {
			fmt.Fprintln(p.Out, "Aborted.")
			return nil
		}
	}

	deleted, err := p.DB.DeleteSessionsBefore(cfg.User, cutoff)
	if err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	fmt.Fprintf(p.Out, "\nDeleted %d sessions\n", deleted)
	return nil
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

func runPrune(args []string) {
	cfg, err := parsePruneFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	appCfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.User == "" {
		cfg.User = appCfg.DefaultUser
	}

	database := mustOpenDB(appCfg)
	defer database.Close()

	p := &Pruner{
		DB:  database,
		Out: os.Stdout,
		In:  os.Stdin,
		Now: time.Now,
		Loc: appCfg.Location(),
	}
	if err := p.Prune(cfg); err != nil {
		log.Fatalf("prune: %v", err)
	}
}
