package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, &config.Config{LogLevel: slog.LevelInfo, LogFormat: "json"})

	WithRunID(log, "run-1").Info("story fired", "story", "evw")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "story fired", rec["msg"])
	assert.Equal(t, "run-1", rec["run_id"])
	assert.Equal(t, "evw", rec["story"])
}

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, &config.Config{LogLevel: slog.LevelWarn, LogFormat: "text"})

	log.Info("hidden")
	assert.Empty(t, buf.String())

	WithError(log, errors.New("boom")).Warn("observer failed")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestSetup_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := Setup(&buf, &config.Config{LogLevel: slog.LevelDebug, LogFormat: "text"})
	assert.Same(t, log, slog.Default())

	slog.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
