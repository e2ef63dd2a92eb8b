package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/timeline"
)

func TestNewTimeWindow(t *testing.T) {
	tests := []struct {
		name        string
		from, until timeline.Tick
		wantErr     bool
	}{
		{"valid", 10_000, 20_000, false},
		{"starts at zero", 0, 1, false},
		{"empty", 5_000, 5_000, true},
		{"inverted", 20_000, 10_000, true},
		{"negative start", -1, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewTimeWindow(tt.from, tt.until)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, w.From())
			assert.Equal(t, tt.until, w.Until())
			assert.Equal(t, KindTimeWindow, w.Kind())
		})
	}
}

func TestNewTimeAtOrAfter(t *testing.T) {
	c, err := NewTimeAtOrAfter(timeline.Seconds(10))
	require.NoError(t, err)
	assert.Equal(t, timeline.Tick(10_000), c.At())

	_, err = NewTimeAtOrAfter(-5)
	assert.True(t, IsConfigError(err))
}

func TestNewCarSetRejectsEmpty(t *testing.T) {
	_, err := NewCarSet(IdentifierSet{})
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cars", ce.Field)
}

func TestNewPolygon(t *testing.T) {
	square := []Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	p, err := NewPolygon(square)
	require.NoError(t, err)
	assert.Equal(t, square, p.Vertices())

	square[0] = Coord{99, 99}
	assert.Equal(t, Coord{0, 0}, p.Vertices()[0], "constructor copies its input")

	_, err = NewPolygon(square[:2])
	assert.True(t, IsConfigError(err), "fewer than three vertices")

	_, err = NewPolygon([]Coord{{0, 0}, {math.NaN(), 1}, {1, 1}})
	assert.True(t, IsConfigError(err), "non-finite vertex")
}

func TestNewSpeedGreater(t *testing.T) {
	c, err := NewSpeedGreater(13.9)
	require.NoError(t, err)
	assert.InDelta(t, 13.9, c.Threshold(), 1e-12)

	for _, bad := range []float64{-1, math.Inf(1), math.NaN()} {
		_, err := NewSpeedGreater(bad)
		assert.Error(t, err, "threshold %v", bad)
	}
}

func TestNewAndOrRequireOperands(t *testing.T) {
	leaf, err := NewTimeAtOrAfter(0)
	require.NoError(t, err)

	_, err = NewAnd(leaf, nil)
	assert.Error(t, err)
	_, err = NewOr(nil, leaf)
	assert.Error(t, err)

	and, err := NewAnd(leaf, leaf)
	require.NoError(t, err)
	assert.Equal(t, KindAnd, and.Kind())
	assert.Equal(t, leaf, and.Left())
}

func TestWalkAndVehicleLeaves(t *testing.T) {
	timeLeaf, _ := NewTimeAtOrAfter(1_000)
	cars, _ := NewCarSet(MustIdentifierSet("evw_veh"))
	fast, _ := NewSpeedGreater(20)
	zone, _ := NewPolygon([]Coord{{0, 0}, {1, 0}, {0, 1}})

	or, err := NewOr(fast, zone)
	require.NoError(t, err)
	inner, err := NewAnd(cars, or)
	require.NoError(t, err)
	root, err := NewAnd(timeLeaf, inner)
	require.NoError(t, err)

	var kinds []ConditionKind
	Walk(root, func(c Condition) { kinds = append(kinds, c.Kind()) })
	assert.Equal(t, []ConditionKind{
		KindAnd, KindTimeAtOrAfter, KindAnd, KindCarSet, KindOr, KindSpeedGreater, KindPolygon,
	}, kinds)

	leaves := VehicleLeaves(root)
	require.Len(t, leaves, 3)
	assert.Equal(t, KindCarSet, leaves[0].Kind())
	assert.Equal(t, KindSpeedGreater, leaves[1].Kind())
	assert.Equal(t, KindPolygon, leaves[2].Kind())

	assert.Empty(t, VehicleLeaves(timeLeaf))
	Walk(nil, func(Condition) { t.Fatal("nil tree must not be visited") })
}

func TestIdentifierSet(t *testing.T) {
	s, err := NewIdentifierSet("flow0", "evw_veh", "flow0", "ambulance.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"ambulance.0", "evw_veh", "flow0"}, s.IDs())
	assert.Equal(t, 3, s.Len())

	_, err = NewIdentifierSet("ok", "")
	assert.True(t, IsConfigError(err))
	_, err = NewIdentifierSet(" padded")
	assert.True(t, IsConfigError(err))

	assert.True(t, IdentifierSet{}.Empty())
}

func TestIdentifierSetMatches(t *testing.T) {
	s := MustIdentifierSet("ambulance.0", "evw_veh", "flow0")

	tests := []struct {
		name string
		id   string
		tags []string
		want bool
	}{
		{"exact id", "ambulance.0", nil, true},
		{"group tag", "car.7", []string{"evw_veh"}, true},
		{"flow prefix", "flow0.3", nil, true},
		{"flow name alone is not a prefix match", "flow01.3", nil, false},
		{"unrelated", "car.7", []string{"other"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Matches(tt.id, tt.tags))
		})
	}
}
