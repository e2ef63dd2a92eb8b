// Package config loads storyboard settings from a config file, the
// environment and command-line flags.
//
// Precedence, highest first: explicitly set flags, STORYBOARD_* environment
// variables, the config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: STORYBOARD_DB,
// STORYBOARD_LOG_LEVEL and so on.
const EnvPrefix = "STORYBOARD"

// Keys.
const (
	KeyDB        = "db"
	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"
	KeyRedisURL  = "redis_url"
	KeyFormat    = "format"
)

// Output and log formats.
var (
	ValidFormats    = []string{"text", "json"}
	ValidLogFormats = []string{"text", "json"}
)

// Config holds resolved settings.
type Config struct {
	// DB is the SQLite firing log path.
	DB string

	// LogLevel is the minimum level logged.
	LogLevel slog.Level

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string

	// RedisURL enables the live firing feed when set.
	RedisURL string

	// Format is the CLI output format: "text" or "json".
	Format string

	// File is the config file that was read, or "" if none was found.
	File string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDB, "storyboard.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyFormat, "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and resolves the settings.
//
// If file is empty, storyboard.yaml is searched for in the working
// directory; a missing file is not an error. An explicitly named file must
// exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("storyboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	level, err := ParseLogLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB:        v.GetString(KeyDB),
		LogLevel:  level,
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),
		RedisURL:  v.GetString(KeyRedisURL),
		Format:    strings.ToLower(v.GetString(KeyFormat)),
		File:      v.ConfigFileUsed(),
	}
	if !slices.Contains(ValidFormats, cfg.Format) {
		return nil, fmt.Errorf("invalid format %q: must be one of %v", cfg.Format, ValidFormats)
	}
	if !slices.Contains(ValidLogFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log_format %q: must be one of %v", cfg.LogFormat, ValidLogFormats)
	}
	return cfg, nil
}

// ParseLogLevel parses debug, info, warn (or warning) and error, in any case.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", level)
	}
}
