package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
)

// defaultClientVersion is used whenever CURSOR_CLIENT_VERSION is unset or
// fails to parse as semver.
const defaultClientVersion = "1.0.0"

// unboundedThreshold is the limit at and above which REQUEST_LOGS_LIMIT is
// treated as effectively unbounded rather than a hard cap.
const unboundedThreshold = 1_000_000

// Config is the gateway's runtime configuration, loaded once at startup and
// threaded explicitly into every component constructor.
type Config struct {
	Host string
	Port int

	DataDir string
	LogsDir string

	RequestLogsLimit      int // 0 = disabled; >= unboundedThreshold = unbounded
	AllowedProviders       []string
	CursorClientVersion    string
	ContextFillMode        uint8
	BypassModelValidation  bool
	Debug                  bool
	DebugLogFile           string
}

// Load builds a Config the teacher's layered way: defaults, then an
// optional YAML file at CONFIG_FILE (default ~/.ngoclaw/config.yaml), then
// environment variable overrides for every bare-named variable in the
// external contract.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = filepath.Join(os.Getenv("HOME"), ".ngoclaw", "config.yaml")
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	v.AutomaticEnv()
	for _, name := range []string{
		"HOST", "PORT",
		"REQUEST_LOGS_LIMIT", "ALLOWED_PROVIDERS", "CURSOR_CLIENT_VERSION",
		"CONTEXT_FILL_MODE", "BYPASS_MODEL_VALIDATION",
		"DEBUG", "DEBUG_LOG_FILE", "DATA_DIR", "LOGS_DIR",
	} {
		_ = v.BindEnv(name)
	}

	cfg := &Config{
		Host:                  v.GetString("HOST"),
		Port:                  v.GetInt("PORT"),
		DataDir:               v.GetString("DATA_DIR"),
		LogsDir:               v.GetString("LOGS_DIR"),
		RequestLogsLimit:      v.GetInt("REQUEST_LOGS_LIMIT"),
		AllowedProviders:      v.GetStringSlice("ALLOWED_PROVIDERS"),
		CursorClientVersion:   v.GetString("CURSOR_CLIENT_VERSION"),
		BypassModelValidation: v.GetBool("BYPASS_MODEL_VALIDATION"),
		Debug:                 v.GetBool("DEBUG"),
		DebugLogFile:          v.GetString("DEBUG_LOG_FILE"),
	}

	cfg.RequestLogsLimit = clampLogsLimit(cfg.RequestLogsLimit)
	cfg.ContextFillMode = uint8(v.GetUint("CONTEXT_FILL_MODE")) & 0b111
	cfg.CursorClientVersion = resolveClientVersion(cfg.CursorClientVersion)

	return cfg, nil
}

// clampLogsLimit treats any value at or above unboundedThreshold as
// effectively unbounded, per §6.
func clampLogsLimit(n int) int {
	if n >= unboundedThreshold {
		return unboundedThreshold
	}
	return n
}

// resolveClientVersion parses raw as semver major.minor.patch, falling back
// to the built-in default on any parse failure. This package has no logger,
// so no warning is logged here; main compares the raw CURSOR_CLIENT_VERSION
// environment value with the resolved one and logs the warning.
func resolveClientVersion(raw string) string {
	if raw == "" {
		return defaultClientVersion
	}
	if _, err := semver.NewVersion(raw); err != nil {
		return defaultClientVersion
	}
	return raw
}

// setDefaults installs the gateway's built-in defaults before any file or
// environment override is applied.
func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 18789)

	v.SetDefault("DATA_DIR", filepath.Join(os.Getenv("HOME"), ".ngoclaw", "data"))
	v.SetDefault("LOGS_DIR", filepath.Join(os.Getenv("HOME"), ".ngoclaw", "logs"))

	v.SetDefault("REQUEST_LOGS_LIMIT", 10000)
	v.SetDefault("ALLOWED_PROVIDERS", []string{"auth0", "google-oauth2", "github"})
	v.SetDefault("CURSOR_CLIENT_VERSION", defaultClientVersion)
	v.SetDefault("CONTEXT_FILL_MODE", 0)
	v.SetDefault("BYPASS_MODEL_VALIDATION", false)
	v.SetDefault("DEBUG", false)
	v.SetDefault("DEBUG_LOG_FILE", "")
}
