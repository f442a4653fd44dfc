// Package config resolves flowstate settings from defaults, the
// data directory's config.json, environment variables and flags.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	DataDir       string        `json:"data_dir"`
	DBPath        string        `json:"-"`
	ImportDir     string        `json:"import_dir"`
	ImportDirs    []string      `json:"import_dirs,omitempty"`
	Timezone      string        `json:"timezone"`
	DefaultUser   string        `json:"default_user"`
	NoWatch       bool          `json:"no_watch"`
	CursorSecret  string        `json:"cursor_secret"`
	WriteTimeout  time.Duration `json:"-"`
	WatchDebounce time.Duration `json:"-"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".flowstate")
	return Config{
		Host:          "127.0.0.1",
		Port:          8090,
		DataDir:       dataDir,
		DBPath:        filepath.Join(dataDir, "flowstate.db"),
		ImportDir:     filepath.Join(dataDir, "imports"),
		Timezone:      "Local",
		DefaultUser:   "me",
		WriteTimeout:  30 * time.Second,
		WatchDebounce: 500 * time.Millisecond,
	}, nil
}

// Load builds a Config by layering:
// defaults < config file < env < flags. The FlagSet must already
// be parsed; only flags that were explicitly set apply.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file and env,
// without flags.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	// The data dir decides where the config file lives, so its
	// env override applies first.
	if v := os.Getenv("FLOWSTATE_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.ImportDir = filepath.Join(v, "imports")
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	if err := cfg.ensureCursorSecret(); err != nil {
		return cfg, fmt.Errorf("ensuring cursor secret: %w", err)
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "flowstate.db")
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host         string   `json:"host"`
		Port         int      `json:"port"`
		ImportDir    string   `json:"import_dir"`
		ImportDirs   []string `json:"import_dirs"`
		Timezone     string   `json:"timezone"`
		DefaultUser  string   `json:"default_user"`
		NoWatch      bool     `json:"no_watch"`
		CursorSecret string   `json:"cursor_secret"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port > 0 {
		c.Port = file.Port
	}
	if file.ImportDir != "" {
		c.ImportDir = file.ImportDir
	}
	if len(file.ImportDirs) > 0 {
		c.ImportDirs = file.ImportDirs
	}
	if file.Timezone != "" {
		c.Timezone = file.Timezone
	}
	if file.DefaultUser != "" {
		c.DefaultUser = file.DefaultUser
	}
	if file.NoWatch {
		c.NoWatch = true
	}
	if file.CursorSecret != "" {
		c.CursorSecret = file.CursorSecret
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("FLOWSTATE_IMPORT_DIR"); v != "" {
		c.ImportDir = v
		c.ImportDirs = []string{v}
	}
	if v := os.Getenv("FLOWSTATE_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("FLOWSTATE_USER"); v != "" {
		c.DefaultUser = v
	}
}

// ensureCursorSecret generates and persists the pagination cursor
// signing key on first run.
func (c *Config) ensureCursorSecret() error {
	if c.CursorSecret != "" {
		return nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("generating secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(b)
	if err := c.save("cursor_secret", secret); err != nil {
		return err
	}
	c.CursorSecret = secret
	return nil
}

// SaveDefaultUser persists the default user to the config file.
func (c *Config) SaveDefaultUser(user string) error {
	if err := c.save("default_user", user); err != nil {
		return err
	}
	c.DefaultUser = user
	return nil
}

// save sets one key in config.json, keeping every other key.
func (c *Config) save(key string, value any) error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w", err,
			)
		}
	}

	existing[key] = value
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveImportDirs returns the directories to import from.
// Precedence: env var (single) > config file array > single dir.
func (c *Config) ResolveImportDirs() []string {
	if len(c.ImportDirs) > 0 {
		return c.ImportDirs
	}
	if c.ImportDir != "" {
		return []string{c.ImportDir}
	}
	return nil
}

// Location resolves Timezone, falling back to UTC when the name is
// unknown.
func (c *Config) Location() *time.Location {
	loc, err := LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// LoadLocation resolves an IANA zone name. "" and "Local" mean the
// host's zone.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8090, "Port to listen on")
	fs.String("tz", "", "IANA timezone for day boundaries")
	fs.String("user", "", "Default user for reports and imports")
	fs.String("import-dir", "", "Directory of session exports to import")
	fs.Bool("no-watch", false, "Don't watch the import directory")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "tz":
			cfg.Timezone = f.Value.String()
		case "user":
			cfg.DefaultUser = f.Value.String()
		case "import-dir":
			cfg.ImportDir = f.Value.String()
			cfg.ImportDirs = []string{cfg.ImportDir}
		case "no-watch":
			cfg.NoWatch = f.Value.String() == "true"
		}
	})
}
