package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/timeline"
)

func TestTrace_ListRuns(t *testing.T) {
	dbPath := recordRun(t, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 run(s)")
	assert.Contains(t, out, "run-a  evw  3 firing(s), until 14s")
}

func TestTrace_ListRunsJSON(t *testing.T) {
	dbPath := recordRun(t, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, RunSummary{
		RunID:        "run-a",
		Scenario:     "evw",
		ScenarioHash: resp.Data[0].ScenarioHash,
		Step:         timeline.Seconds(1),
		Until:        timeline.Seconds(14),
		Firings:      3,
		LastTick:     timeline.Seconds(10),
	}, resp.Data[0])
	assert.Len(t, resp.Data[0].ScenarioHash, 64)
}

func TestTrace_Run(t *testing.T) {
	dbPath := recordRun(t, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)

	assert.Contains(t, out, "Run: run-a")
	assert.Contains(t, out, "Ticks: every 1s until 14s")
	assert.Contains(t, out, "[1] 5s make-way (retriggerable)\n    flow0.0 lane_change_mode=2730 applied\n")
	assert.Contains(t, out, "[2] 5s slow-down (continuous)\n    ambulance.0 speed_scale=0.5 applied\n")
	assert.Contains(t, out, "[3] 10s evw (single-shot)\n    ambulance.0 signal=EVW applied\n")
	assert.Contains(t, out, "Stats: 3 firing(s), 3 actuation(s), 0 not applied")
	assert.Contains(t, out, "By story: evw=1 make-way=1 slow-down=1")
}

func TestTrace_StoryFilterJSON(t *testing.T) {
	dbPath := recordRun(t, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--run", "run-a", "--story", "evw")
	require.NoError(t, err)

	var resp struct {
		RunID string      `json:"run_id"`
		Data  TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-a", resp.RunID)
	assert.Equal(t, "evw", resp.Data.Story)
	require.Len(t, resp.Data.Firings, 1)
	assert.Equal(t, int64(3), resp.Data.Firings[0].Seq)
	assert.Equal(t, []string{"ambulance.0"}, resp.Data.Firings[0].Vehicles())
	assert.Equal(t, 3, resp.Data.Stats.Firings, "stats cover the whole run")
}

func TestTrace_Errors(t *testing.T) {
	dbPath := recordRun(t, "run-a")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown run", []string{"--db", dbPath, "--run", "nope"}, "run not found"},
		{"story without run", []string{"--db", dbPath, "--story", "evw"}, "--story requires --run"},
		{"missing database", []string{"--db", filepath.Join(t.TempDir(), "none.db")}, "database not found"},
		{"no database", nil, "database path required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
