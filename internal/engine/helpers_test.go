package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func after(t *testing.T, at timeline.Tick) ir.Condition {
	t.Helper()
	c, err := ir.NewTimeAtOrAfter(at)
	require.NoError(t, err)
	return c
}

func window(t *testing.T, from, until timeline.Tick) ir.Condition {
	t.Helper()
	c, err := ir.NewTimeWindow(from, until)
	require.NoError(t, err)
	return c
}

func cars(t *testing.T, ids ...string) ir.Condition {
	t.Helper()
	c, err := ir.NewCarSet(ir.MustIdentifierSet(ids...))
	require.NoError(t, err)
	return c
}

func zone(t *testing.T, vertices ...ir.Coord) ir.Condition {
	t.Helper()
	c, err := ir.NewPolygon(vertices)
	require.NoError(t, err)
	return c
}

func faster(t *testing.T, threshold float64) ir.Condition {
	t.Helper()
	c, err := ir.NewSpeedGreater(threshold)
	require.NoError(t, err)
	return c
}

func and(t *testing.T, l, r ir.Condition) ir.Condition {
	t.Helper()
	c, err := ir.NewAnd(l, r)
	require.NoError(t, err)
	return c
}

func or(t *testing.T, l, r ir.Condition) ir.Condition {
	t.Helper()
	c, err := ir.NewOr(l, r)
	require.NoError(t, err)
	return c
}

func signal(t *testing.T, kind string) ir.Effect {
	t.Helper()
	e, err := ir.NewSignal(kind, ir.DefaultSignals())
	require.NoError(t, err)
	return e
}

func speedScale(t *testing.T, f float64) ir.Effect {
	t.Helper()
	e, err := ir.NewSpeedScale(f)
	require.NoError(t, err)
	return e
}

func story(t *testing.T, when ir.Condition, then []ir.Effect, opts ...ir.StoryOption) ir.Story {
	t.Helper()
	s, err := ir.NewStory(when, then, opts...)
	require.NoError(t, err)
	return s
}

// countingQuery records how often each query method is called.
type countingQuery struct {
	vehicle.Query
	matches, positions, faster int
}

func (q *countingQuery) Match(tick timeline.Tick, ids ir.IdentifierSet) []string {
	q.matches++
	return q.Query.Match(tick, ids)
}

func (q *countingQuery) Positions(tick timeline.Tick) []vehicle.Position {
	q.positions++
	return q.Query.Positions(tick)
}

func (q *countingQuery) FasterThan(tick timeline.Tick, threshold float64) []string {
	q.faster++
	return q.Query.FasterThan(tick, threshold)
}

// ghostKernel reports the vehicles in ghosts as present but refuses to
// actuate them, as if they left between query and actuation. Vehicles in
// broken fail with a generic error.
type ghostKernel struct {
	*vehicle.Population
	ghosts map[string]bool
	broken map[string]bool
}

var errBroken = errors.New("kernel rejected command")

func (k *ghostKernel) check(id string) error {
	if k.ghosts[id] {
		return vehicle.ErrDeparted
	}
	if k.broken[id] {
		return errBroken
	}
	return nil
}

func (k *ghostKernel) SetSignal(id, kind string) error {
	if err := k.check(id); err != nil {
		return err
	}
	return k.Population.SetSignal(id, kind)
}

func (k *ghostKernel) SetSpeedFactor(id string, f float64) error {
	if err := k.check(id); err != nil {
		return err
	}
	return k.Population.SetSpeedFactor(id, f)
}
