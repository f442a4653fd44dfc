package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/flow"
)

// ReportConfig holds parsed CLI options for the report command.
type ReportConfig struct {
	User       string
	Timezone   string
	Metric     string
	WeekOffset int
}

func parseReportFlags(args []string) (ReportConfig, error) {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	user := fs.String("user", "", "User to report on")
	tz := fs.String("tz", "", "IANA timezone for day boundaries")
	metric := fs.String(
		"metric", "",
		"Print a single metric instead of the full report",
	)
	week := fs.Int(
		"week", 0,
		"Week offset for weekly_work_time (0 or negative)",
	)
	if err := fs.Parse(args); err != nil {
		return ReportConfig{}, err
	}
	if *week > 0 {
		return ReportConfig{}, fmt.Errorf("week must be zero or negative")
	}
	if *metric != "" {
		if _, err := flow.ParseMetric(*metric); err != nil {
			return ReportConfig{}, err
		}
	}
	return ReportConfig{
		User:       *user,
		Timezone:   *tz,
		Metric:     *metric,
		WeekOffset: *week,
	}, nil
}

// Reporter renders flow reports from a snapshot source.
type Reporter struct {
	Source flow.Source
	Out    io.Writer
	Now    flow.Clock
}

// Report writes the full report, or one metric, as indented JSON.
func (r *Reporter) Report(
	ctx context.Context, cfg ReportConfig, loc *time.Location,
) error {
	now := r.Now().In(loc)

	var out any
	if cfg.Metric == "" {
		report, err := flow.Run(ctx, r.Source, cfg.User, now, cfg.WeekOffset)
		if err != nil {
			return err
		}
		out = report
	} else {
		m, err := flow.ParseMetric(cfg.Metric)
		if err != nil {
			return err
		}
		sessions, tasks, err := r.Source.Snapshot(ctx, cfg.User)
		if err != nil {
			return fmt.Errorf("loading snapshot for %s: %w", cfg.User, err)
		}
		out, err = flow.Evaluate(m, flow.Input{
			Sessions:   sessions,
			Tasks:      tasks,
			Now:        now,
			WeekOffset: cfg.WeekOffset,
		})
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runReport(args []string) {
	cfg, err := parseReportFlags(args)
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
	if cfg.Timezone != "" {
		appCfg.Timezone = cfg.Timezone
	}
	loc, err := config.LoadLocation(appCfg.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: unknown timezone %q\n", appCfg.Timezone)
		os.Exit(1)
	}

	database := mustOpenDB(appCfg)
	defer database.Close()

	r := &Reporter{Source: database, Out: os.Stdout, Now: time.Now}
	if err := r.Report(context.Background(), cfg, loc); err != nil {
		log.Fatalf("report: %v", err)
	}
}
