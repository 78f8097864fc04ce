package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures file and environment driven settings for the CLI and daemon.
type Config struct {
	// DataDir holds the database and any exported files.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// DBPath defaults to <DataDir>/daylink.db.
	DBPath string `yaml:"db_path" json:"db_path"`
	// Listen is the HTTP address used by `daylink serve`.
	Listen string `yaml:"listen" json:"listen"`

	Log    LogConfig    `yaml:"log" json:"log"`
	Notify NotifyConfig `yaml:"notify" json:"notify"`
	KDF    KDFConfig    `yaml:"kdf" json:"kdf"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is text or json.
	Format string `yaml:"format" json:"format"`
}

// NotifyConfig controls reminder delivery.
type NotifyConfig struct {
	// Permission is default, granted or denied.
	Permission string `yaml:"permission" json:"permission"`
	// Command, when set, is run with the title and body appended.
	Command string `yaml:"command" json:"command"`
	// RearmCron re-arms today's reminders; standard five-field syntax.
	RearmCron string `yaml:"rearm_cron" json:"rearm_cron"`
}

// KDFConfig tunes argon2id for newly written records.
type KDFConfig struct {
	MemoryKiB  uint32 `yaml:"memory_kib" json:"memory_kib"`
	Iterations uint32 `yaml:"iterations" json:"iterations"`
}

const (
	defaultListen     = "127.0.0.1:8737"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
	defaultPermission = "default"
	defaultRearmCron  = "0 0 * * *"
	defaultMemoryKiB  = 64 * 1024
	defaultIterations = 3
	dbFileName        = "daylink.db"
)

// DefaultPath returns $XDG_CONFIG_HOME/daylink/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	base := strings.TrimSpace(getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home := strings.TrimSpace(getenv("HOME"))
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "daylink", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/daylink or ~/.local/share/daylink.
func DefaultDataDir(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir := strings.TrimSpace(getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "daylink")
	}
	home := strings.TrimSpace(getenv("HOME"))
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".local", "share", "daylink")
}

// Default returns the built-in configuration.
func Default(getenv func(string) string) Config {
	cfg := Config{}
	cfg.normalize(getenv)
	return cfg
}

// normalize fills zero values so partially written files still work.
func (c *Config) normalize(getenv func(string) string) {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir(getenv)
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Notify.Permission == "" {
		c.Notify.Permission = defaultPermission
	}
	if c.Notify.RearmCron == "" {
		c.Notify.RearmCron = defaultRearmCron
	}
	if c.KDF.MemoryKiB == 0 {
		c.KDF.MemoryKiB = defaultMemoryKiB
	}
	if c.KDF.Iterations == 0 {
		c.KDF.Iterations = defaultIterations
	}
}

// DatabasePath resolves DBPath against DataDir.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, dbFileName)
}

// Load reads the YAML file at path. A missing file is created with the
// defaults and 0600 permissions.
func Load(path string, getenv func(string) string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default(getenv)
			if err := Save(path, cfg); err != nil {
				return cfg, fmt.Errorf("config: write defaults: %w", err)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.normalize(getenv)
	return cfg, nil
}

// Save writes cfg atomically through a temp file in the same directory.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daylink-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
