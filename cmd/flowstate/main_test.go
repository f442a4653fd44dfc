package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/ingest"
)

func setDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOWSTATE_DATA_DIR", dir)
	t.Setenv("FLOWSTATE_IMPORT_DIR", "")
	t.Setenv("FLOWSTATE_TIMEZONE", "")
	t.Setenv("FLOWSTATE_USER", "")
	return dir
}

func TestMustLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantHost    string
		wantPort    int
		wantUser    string
		wantNoWatch bool
	}{
		{
			name:     "DefaultArgs",
			args:     []string{},
			wantHost: "127.0.0.1",
			wantPort: 8090,
			wantUser: "me",
		},
		{
			name: "ExplicitFlags",
			args: []string{
				"-host", "0.0.0.0", "-port", "9090",
				"-user", "ana", "-no-watch",
			},
			wantHost:    "0.0.0.0",
			wantPort:    9090,
			wantUser:    "ana",
			wantNoWatch: true,
		},
		{
			name:     "PartialFlags",
			args:     []string{"-port", "3000"},
			wantHost: "127.0.0.1",
			wantPort: 3000,
			wantUser: "me",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setDataDir(t)
			cfg := mustLoadConfig(tt.args)

			if cfg.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
			if cfg.DefaultUser != tt.wantUser {
				t.Errorf("DefaultUser = %q, want %q", cfg.DefaultUser, tt.wantUser)
			}
			if cfg.NoWatch != tt.wantNoWatch {
				t.Errorf("NoWatch = %v, want %v", cfg.NoWatch, tt.wantNoWatch)
			}
			if cfg.DataDir != dir {
				t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
			}
			wantDBPath := filepath.Join(dir, "flowstate.db")
			if cfg.DBPath != wantDBPath {
				t.Errorf("DBPath = %q, want %q", cfg.DBPath, wantDBPath)
			}
		})
	}
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		DBPath:       filepath.Join(dir, "flowstate.db"),
		CursorSecret: "c2VjcmV0",
	}
	database, err := openDB(cfg)
	if err != nil {
		t.Fatalf("openDB: %v", err)
	}
	database.Close()

	cfg.CursorSecret = "not base64!"
	if _, err := openDB(cfg); err == nil ||
		!strings.Contains(err.Error(), "invalid cursor secret") {
		t.Errorf("err = %v, want invalid cursor secret", err)
	}
}

func TestPrintImportStats(t *testing.T) {
	var buf bytes.Buffer
	printImportStats(&buf, ingest.Stats{
		Files: 2, Sessions: 10, Tasks: 1, Rejected: 1,
		Warnings: []string{"a.jsonl:3: missing started_at"},
	})
	out := buf.String()
	for _, want := range []string{
		"2 files, 10 sessions, 1 tasks",
		"1 rejected",
		"warning: a.jsonl:3: missing started_at",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetupLogFile(t *testing.T) {
	origOutput := log.Writer()
	t.Cleanup(func() { log.SetOutput(origOutput) })

	dir := t.TempDir()
	setupLogFile(dir)
	log.Print("test-log-message")

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "test-log-message") {
		t.Errorf("log file missing message, got: %q", data)
	}
}

func TestSetupLogFileOpenFailure(t *testing.T) {
	origOutput := log.Writer()
	t.Cleanup(func() { log.SetOutput(origOutput) })

	var buf bytes.Buffer
	log.SetOutput(io.MultiWriter(origOutput, &buf))

	// A regular file standing in for the directory.
	notDir := filepath.Join(t.TempDir(), "notadir")
	if err := os.WriteFile(notDir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	setupLogFile(notDir)

	if !strings.Contains(buf.String(), "cannot open log file") {
		t.Errorf("expected warning about log file, got: %q", buf.String())
	}
}

func TestTruncateLogFile(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		limit    int64
		wantSize int64
	}{
		{"OverLimit", 1024, 512, 0},
		{"UnderLimit", 100, 1024, 100},
		{"AtLimit", 512, 512, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.log")
			if err := os.WriteFile(path, bytes.Repeat([]byte("x"), tt.size), 0o644); err != nil {
				t.Fatal(err)
			}
			truncateLogFile(path, tt.limit)
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat after truncate: %v", err)
			}
			if info.Size() != tt.wantSize {
				t.Errorf("size = %d, want %d", info.Size(), tt.wantSize)
			}
		})
	}
}

func TestTruncateLogFileMissing(t *testing.T) {
	truncateLogFile(filepath.Join(t.TempDir(), "missing", "log.txt"), 1024)
}

func TestTruncateLogFileSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.log")
	link := filepath.Join(dir, "link.log")
	if err := os.WriteFile(target, bytes.Repeat([]byte("x"), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	truncateLogFile(link, 512)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if len(data) != 1024 {
		t.Errorf("symlink target was truncated: size=%d, want 1024", len(data))
	}
}
