package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/engine"
)

func TestGetRunStats(t *testing.T) {
	s := createMemoryStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	departed := createTestFiring("run-1", 3, 900, "slow", "gone")
	departed.Actuations[0].Outcome = engine.OutcomeDeparted
	for _, f := range []engine.Firing{
		createTestFiring("run-1", 1, 100, "evw", "a", "b"),
		createTestFiring("run-1", 2, 400, "slow", "a"),
		departed,
	} {
		_, err := s.WriteFiring(ctx, f)
		require.NoError(t, err)
	}

	stats, err := s.GetRunStats(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStats{
		RunID:      "run-1",
		Firings:    3,
		Actuations: 4,
		NotApplied: 1,
		LastSeq:    3,
		LastTick:   900,
		ByStory:    map[string]int{"evw": 1, "slow": 2},
	}, stats)
}

func TestGetRunStats_EmptyAndMissing(t *testing.T) {
	s := createMemoryStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	stats, err := s.GetRunStats(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Firings)
	assert.Empty(t, stats.ByStory)

	_, err = s.GetRunStats(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
