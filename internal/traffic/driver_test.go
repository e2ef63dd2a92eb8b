package traffic

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/vehicle"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func evwStory(t *testing.T) ir.Story {
	t.Helper()
	after, err := ir.NewTimeAtOrAfter(10_000)
	require.NoError(t, err)
	cars, err := ir.NewCarSet(ir.MustIdentifierSet("ambulance.0"))
	require.NoError(t, err)
	when, err := ir.NewAnd(after, cars)
	require.NoError(t, err)
	sig, err := ir.NewSignal(ir.SignalEVW, ir.DefaultSignals())
	require.NoError(t, err)
	s, err := ir.NewStory(when, []ir.Effect{sig}, ir.WithName("evw"))
	require.NoError(t, err)
	return s
}

func newTestDriver(t *testing.T, opts ...DriverOption) (*Driver, *vehicle.Population, *engine.Board) {
	t.Helper()
	plan, err := Load(filepath.Join("testdata", "evw.yaml"))
	require.NoError(t, err)

	pop := vehicle.NewPopulation()
	board := engine.NewBoard(pop, engine.WithRunID("traffic-test"), engine.WithLogger(quietLogger()))
	_, err = board.RegisterStory(evwStory(t))
	require.NoError(t, err)

	opts = append([]DriverOption{WithLogger(quietLogger())}, opts...)
	return NewDriver(plan, pop, board, opts...), pop, board
}

func TestDriverRunFiresOnce(t *testing.T) {
	d, pop, board := newTestDriver(t)

	sum, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "traffic-test", sum.RunID)
	assert.Equal(t, 21, sum.Ticks)
	assert.EqualValues(t, 20_000, sum.LastTick)
	require.Len(t, sum.Firings, 1)

	f := sum.Firings[0]
	assert.EqualValues(t, 10_000, f.Tick)
	assert.Equal(t, "evw", f.StoryID)
	assert.Equal(t, []string{"ambulance.0"}, f.Vehicles())
	assert.Equal(t, engine.OutcomeApplied, f.Actuations[0].Outcome)

	amb, ok := pop.Get("ambulance.0")
	require.True(t, ok)
	assert.Equal(t, ir.SignalEVW, amb.Signal)
	assert.Equal(t, ir.Coord{X: 200, Y: 0}, amb.At)

	_, ok = pop.Get("flow0.0")
	assert.False(t, ok, "flow0.0 left at 15s")

	status, ok := board.Story("evw")
	require.True(t, ok)
	assert.Equal(t, engine.StateDone, status.State)
}

func TestDriverApply(t *testing.T) {
	d, pop, _ := newTestDriver(t)

	require.NoError(t, d.Apply(0))
	assert.Equal(t, 1, pop.Len())

	require.NoError(t, d.Apply(5_000))
	amb, ok := pop.Get("ambulance.0")
	require.True(t, ok)
	assert.Equal(t, ir.Coord{X: 0, Y: 0}, amb.At)
	assert.Equal(t, 1, amb.Lane)
	assert.Equal(t, []string{"evw_veh"}, amb.Tags)

	require.NoError(t, d.Apply(12_000))
	amb, _ = pop.Get("ambulance.0")
	assert.Equal(t, ir.Coord{X: 200, Y: 0}, amb.At)
	assert.EqualValues(t, 12_000, pop.Now())

	require.NoError(t, d.Apply(15_000))
	assert.Equal(t, 1, pop.Len())
}

func TestDriverStepHook(t *testing.T) {
	var ticks int
	var fired []string
	d, _, _ := newTestDriver(t, WithStepHook(func(r engine.StepReport, pop *vehicle.Population) {
		ticks++
		for _, f := range r.Firings {
			fired = append(fired, f.StoryID)
		}
	}))

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21, ticks)
	assert.Equal(t, []string{"evw"}, fired)
}

func TestDriverRunCancelled(t *testing.T) {
	d, _, _ := newTestDriver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sum.Ticks)
}

func TestDriverTickRegression(t *testing.T) {
	d, _, _ := newTestDriver(t)

	_, err := d.Step(2_000)
	require.NoError(t, err)
	_, err = d.Step(1_000)
	require.Error(t, err)
	assert.True(t, engine.IsTickRegression(err))
}
