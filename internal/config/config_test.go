package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "storyboard.db", cfg.DB)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "", cfg.File)
}

func TestLoad_ConfigFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("storyboard.yaml", []byte("db: runs.db\nlog_level: debug\nformat: json\n"), 0644))

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "runs.db", cfg.DB)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis_url: redis://localhost:6379/0\nlog_format: json\n"), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("storyboard.yaml", []byte("db: file.db\n"), 0644))
	t.Setenv("STORYBOARD_DB", "env.db")
	t.Setenv("STORYBOARD_LOG_LEVEL", "WARN")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.DB)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env     string
		value   string
		wantErr string
	}{
		{"STORYBOARD_FORMAT", "xml", `invalid format "xml"`},
		{"STORYBOARD_LOG_FORMAT", "logfmt", `invalid log_format "logfmt"`},
		{"STORYBOARD_LOG_LEVEL", "loud", `invalid log_level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.env, tt.value)

			_, err := Load(New(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
