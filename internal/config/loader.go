package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/example/daylink/internal/identity"
)

// Environment variables that override file values.
const (
	EnvDataDir          = "DAYLINK_DATA_DIR"
	EnvDBPath           = "DAYLINK_DB_PATH"
	EnvListen           = "DAYLINK_LISTEN"
	EnvLogLevel         = "DAYLINK_LOG_LEVEL"
	EnvLogFormat        = "DAYLINK_LOG_FORMAT"
	EnvNotifyPermission = "DAYLINK_NOTIFY_PERMISSION"
	EnvNotifyCommand    = "DAYLINK_NOTIFY_COMMAND"
	EnvRearmCron        = "DAYLINK_REARM_CRON"
	EnvKDFMemory        = "DAYLINK_KDF_MEMORY_KIB"
	EnvKDFIterations    = "DAYLINK_KDF_ITERATIONS"
)

// LoadFromEnv reads the file at path (creating it on first run) and then
// applies environment overrides from getenv.
//
// Every invalid value is collected and reported in a single error.
func LoadFromEnv(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg, err := Load(path, getenv)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment values onto cfg and validates the result.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if v := lookup(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := lookup(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := lookup(EnvListen); v != "" {
		cfg.Listen = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := lookup(EnvLogFormat); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := lookup(EnvNotifyPermission); v != "" {
		cfg.Notify.Permission = strings.ToLower(v)
	}
	if v := lookup(EnvNotifyCommand); v != "" {
		cfg.Notify.Command = v
	}
	if v := lookup(EnvRearmCron); v != "" {
		cfg.Notify.RearmCron = v
	}

	invalid := make([]string, 0, 2)

	if v := lookup(EnvKDFMemory); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			invalid = append(invalid, EnvKDFMemory)
		} else {
			cfg.KDF.MemoryKiB = uint32(n)
		}
	}
	if v := lookup(EnvKDFIterations); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			invalid = append(invalid, EnvKDFIterations)
		} else {
			cfg.KDF.Iterations = uint32(n)
		}
	}

	invalid = append(invalid, cfg.invalidFields()...)
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// invalidFields names settings whose values cannot be used.
func (c Config) invalidFields() []string {
	var invalid []string
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log.level")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		invalid = append(invalid, "log.format")
	}
	switch c.Notify.Permission {
	case "default", "granted", "denied":
	default:
		invalid = append(invalid, "notify.permission")
	}
	if _, err := cron.ParseStandard(c.Notify.RearmCron); err != nil {
		invalid = append(invalid, "notify.rearm_cron")
	}
	if strings.TrimSpace(c.Listen) == "" {
		invalid = append(invalid, "listen")
	}
	return invalid
}

// CipherParams returns argon2id parameters honouring the KDF overrides.
func (c Config) CipherParams() identity.Argon2idParams {
	params := identity.DefaultArgon2idParams
	if c.KDF.MemoryKiB > 0 {
		params.Memory = c.KDF.MemoryKiB
	}
	if c.KDF.Iterations > 0 {
		params.Iterations = c.KDF.Iterations
	}
	return params
}
