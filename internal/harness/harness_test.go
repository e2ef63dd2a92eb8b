package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/timeline"
)

func loadAndRun(t *testing.T, path string) *Result {
	t.Helper()
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestRun_EVWScenario(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/evw_basic.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "test-run-evw", result.RunID)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "make-way", result.Trace[0].StoryID)
	assert.Equal(t, "slow-down", result.Trace[1].StoryID)
	assert.Equal(t, "evw", result.Trace[2].StoryID)
	for i, f := range result.Trace {
		assert.EqualValues(t, i+1, f.Seq)
		assert.Equal(t, "test-run-evw", f.RunID, "trace is read back from the store")
	}

	require.Len(t, result.Stories, 3)
	assert.Equal(t, engine.StateDone, result.Stories[0].State)
}

func TestRun_ZoneScenario(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/zone_retrigger.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "roadworks", result.Trace[0].StoryID)
	assert.Equal(t, timeline.Tick(2_000), result.Trace[0].Tick)
	assert.Equal(t, []string{"car0"}, result.Trace[0].Vehicles())
}

func TestRun_FailingAssertion(t *testing.T) {
	result := loadAndRun(t, "testdata/failing/wrong_count.yaml")

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: fired_count")
	assert.Contains(t, result.Errors[0], "Expected: 2 firings of evw")
	assert.Contains(t, result.Errors[0], "Actual: 1 firings")
	assert.Equal(t, "test-run-default", result.RunID)
}

func TestRun_Deterministic(t *testing.T) {
	first := loadAndRun(t, "testdata/scenarios/evw_basic.yaml")
	second := loadAndRun(t, "testdata/scenarios/evw_basic.yaml")

	assert.Equal(t, first.Trace, second.Trace)
	assert.Nil(t, engine.CompareFirings(first.Trace, second.Trace))
}

func TestRun_InvalidStories(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/evw_basic.yaml")
	require.NoError(t, err)
	scenario.Stories = "testdata/scenarios/golden"

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile stories")
}
