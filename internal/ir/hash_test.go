package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evwScenario(t *testing.T, signal string) Scenario {
	t.Helper()
	when, err := NewCarSet(MustIdentifierSet("ambulance.0"))
	require.NoError(t, err)
	eff, err := NewSignal(signal, DefaultSignals())
	require.NoError(t, err)
	story, err := NewStory(when, []Effect{eff}, WithName("evw"))
	require.NoError(t, err)
	return Scenario{Name: "demo", Stories: []Story{story}}
}

func TestScenarioHashDeterminism(t *testing.T) {
	h1, err := ScenarioHash(evwScenario(t, SignalEVW))
	require.NoError(t, err)
	h2, err := ScenarioHash(evwScenario(t, SignalEVW))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestScenarioHashChangesWithContent(t *testing.T) {
	base := MustScenarioHash(evwScenario(t, SignalEVW))

	assert.NotEqual(t, base, MustScenarioHash(evwScenario(t, SignalRWW)), "different effect")

	renamed := evwScenario(t, SignalEVW)
	renamed.Name = "other"
	assert.NotEqual(t, base, MustScenarioHash(renamed), "different scenario name")
}

func TestScenarioHashOrderSensitive(t *testing.T) {
	a := evwScenario(t, SignalEVW).Stories[0]
	b := evwScenario(t, SignalRWW).Stories[0]
	b.Name = "rww"

	ab := MustScenarioHash(Scenario{Stories: []Story{a, b}})
	ba := MustScenarioHash(Scenario{Stories: []Story{b, a}})
	assert.NotEqual(t, ab, ba, "registration order is part of identity")
}

func TestScenarioHashIgnoresIdentifierOrder(t *testing.T) {
	mk := func(ids ...string) string {
		when, err := NewCarSet(MustIdentifierSet(ids...))
		require.NoError(t, err)
		eff, err := NewLaneChangeMode(2730)
		require.NoError(t, err)
		s, err := NewStory(when, []Effect{eff})
		require.NoError(t, err)
		return MustScenarioHash(Scenario{Stories: []Story{s}})
	}
	assert.Equal(t, mk("flow0", "evw_veh"), mk("evw_veh", "flow0", "flow0"))
}

func TestContentHashDomainSeparation(t *testing.T) {
	v := map[string]any{"a": 1}

	s, err := ContentHash(DomainScenario, v)
	require.NoError(t, err)
	f, err := ContentHash(DomainFiring, v)
	require.NoError(t, err)

	assert.NotEqual(t, s, f)
}

func TestContentHashRejectsFloat(t *testing.T) {
	_, err := ContentHash(DomainFiring, map[string]any{"v": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainFiring)
}

func TestStoryHash(t *testing.T) {
	sc := evwScenario(t, SignalEVW)
	h1, err := StoryHash(sc.Stories[0])
	require.NoError(t, err)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, MustScenarioHash(sc), h1)
}
