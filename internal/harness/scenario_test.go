package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/timeline"
)

const validTraffic = `
traffic:
  step: 1s
  until: 5s
  vehicles:
    - id: car0
      enter: 0
      track: [{ at: 0, x: 0, y: 0, speed: 10 }]
`

// writeStories writes a minimal valid story file into dir.
func writeStories(t *testing.T, dir string) {
	t.Helper()
	src := `stories: [{name: "s", when: cars: ["car0"], then: [{signal: "EVW"}]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.cue"), []byte(src), 0644))
}

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/evw_basic.yaml")
	require.NoError(t, err)

	assert.Equal(t, "evw_basic", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "stories", "evw.cue"), scenario.Stories)
	assert.Equal(t, "test-run-evw", scenario.RunID)
	assert.Equal(t, timeline.Tick(1_000), scenario.Traffic.Step.Tick())
	assert.Equal(t, timeline.Tick(14_000), scenario.Traffic.Until.Tick())
	require.Len(t, scenario.Traffic.Vehicles, 2)
	require.Len(t, scenario.Assertions, 9)

	first := scenario.Assertions[0]
	assert.Equal(t, AssertFiredAt, first.Type)
	require.Len(t, first.Ticks, 1)
	assert.Equal(t, timeline.Tick(10_000), first.Ticks[0].Tick())

	vs := scenario.Assertions[6]
	require.NotNil(t, vs.At)
	assert.Equal(t, timeline.Tick(10_000), vs.At.Tick())
	require.NotNil(t, vs.Expect.LaneChangeMode)
	assert.Equal(t, 2730, *vs.Expect.LaneChangeMode)
	assert.Nil(t, vs.Expect.Signal)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Errors(t *testing.T) {
	dir := t.TempDir()
	writeStories(t, dir)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertion: []\n" + validTraffic,
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nstories: s.cue\n" + validTraffic,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nstories: s.cue\n" + validTraffic,
			wantErr: "description is required",
		},
		{
			name:    "missing stories",
			yaml:    "name: x\ndescription: d\n" + validTraffic,
			wantErr: "stories is required",
		},
		{
			name:    "stories not found",
			yaml:    "name: x\ndescription: d\nstories: nope.cue\n" + validTraffic,
			wantErr: "which do not exist",
		},
		{
			name:    "bad traffic",
			yaml:    "name: x\ndescription: d\nstories: s.cue\ntraffic: {step: 0, until: 1s}\nassertions: [{type: never_fired, story: s}]\n",
			wantErr: "traffic: step must be positive",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: d\nstories: s.cue\n" + validTraffic,
			wantErr: "assertions list is required",
		},
		{
			name:    "missing type",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{story: s}]\n" + validTraffic,
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown type",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: fired_sometimes, story: s}]\n" + validTraffic,
			wantErr: `unknown assertion type "fired_sometimes"`,
		},
		{
			name:    "missing story",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: never_fired}]\n" + validTraffic,
			wantErr: "story is required for never_fired",
		},
		{
			name:    "negative count",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: fired_count, story: s, count: -1}]\n" + validTraffic,
			wantErr: "count must be non-negative",
		},
		{
			name:    "fired_at without ticks",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: fired_at, story: s}]\n" + validTraffic,
			wantErr: "ticks list is required",
		},
		{
			name:    "vehicle_state without vehicle",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: vehicle_state, expect: {signal: EVW}}]\n" + validTraffic,
			wantErr: "vehicle is required",
		},
		{
			name:    "vehicle_state without expect",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: vehicle_state, vehicle: car0, expect: {}}]\n" + validTraffic,
			wantErr: "expect is required",
		},
		{
			name:    "vehicle_state unknown attribute",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: vehicle_state, vehicle: car0, expect: {colour: red}}]\n" + validTraffic,
			wantErr: "field colour not found",
		},
		{
			name:    "bad story state",
			yaml:    "name: x\ndescription: d\nstories: s.cue\nassertions: [{type: story_state, story: s, state: sleeping}]\n" + validTraffic,
			wantErr: "state must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_StoriesNotFoundError(t *testing.T) {
	dir := t.TempDir()
	yaml := "name: x\ndescription: d\nstories: missing.cue\nassertions: [{type: never_fired, story: s}]\n" + validTraffic

	_, err := ParseScenario([]byte(yaml), dir)
	var notFound *StoriesNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "x", notFound.Scenario)
	assert.Equal(t, filepath.Join(dir, "missing.cue"), notFound.ResolvedPath)
}

func TestParseScenario_AbsoluteStoriesPath(t *testing.T) {
	dir := t.TempDir()
	writeStories(t, dir)
	abs := filepath.Join(dir, "s.cue")
	yaml := "name: x\ndescription: d\nstories: " + abs + "\nassertions: [{type: never_fired, story: s}]\n" + validTraffic

	scenario, err := ParseScenario([]byte(yaml), "/somewhere/else")
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Stories)
}
