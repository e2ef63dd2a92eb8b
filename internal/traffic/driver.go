package traffic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// StepHook is called after every board step with the population as the
// board left it.
type StepHook func(report engine.StepReport, pop *vehicle.Population)

// Driver applies a plan to a population and steps a board once per tick.
type Driver struct {
	plan   *Plan
	pop    *vehicle.Population
	board  *engine.Board
	logger *slog.Logger
	hooks  []StepHook
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// WithStepHook registers a hook run after every step.
func WithStepHook(h StepHook) DriverOption {
	return func(d *Driver) { d.hooks = append(d.hooks, h) }
}

// NewDriver creates a driver. The board must have been created over pop.
func NewDriver(plan *Plan, pop *vehicle.Population, board *engine.Board, opts ...DriverOption) *Driver {
	d := &Driver{
		plan:   plan,
		pop:    pop,
		board:  board,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Summary describes a finished run.
type Summary struct {
	RunID    string          `json:"run_id"`
	Ticks    int             `json:"ticks"`
	LastTick timeline.Tick   `json:"last_tick"`
	Firings  []engine.Firing `json:"firings"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Run drives every tick of the plan. The context is checked between ticks;
// a cancelled run returns the summary so far with the context's error.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: d.board.RunID(), Firings: []engine.Firing{}}
	for _, tick := range d.plan.Ticks() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		report, err := d.Step(tick)
		if err != nil {
			return sum, err
		}
		sum.Ticks++
		sum.LastTick = tick
		sum.Firings = append(sum.Firings, report.Firings...)
		sum.Warnings = append(sum.Warnings, report.Warnings...)
	}
	d.logger.Info("traffic run complete",
		"ticks", sum.Ticks,
		"firings", len(sum.Firings),
		"warnings", len(sum.Warnings))
	return sum, nil
}

// Step applies the plan at tick and steps the board.
func (d *Driver) Step(tick timeline.Tick) (engine.StepReport, error) {
	if err := d.Apply(tick); err != nil {
		return engine.StepReport{}, err
	}
	report, err := d.board.Step(tick)
	if err != nil {
		return engine.StepReport{}, fmt.Errorf("step %s: %w", tick, err)
	}
	for _, h := range d.hooks {
		h(report, d.pop)
	}
	return report, nil
}

// Apply brings the population to its planned state at tick: departures,
// then arrivals, then keyframe positions, then the population clock.
func (d *Driver) Apply(tick timeline.Tick) error {
	for _, v := range d.plan.Vehicles {
		_, present := d.pop.Get(v.ID)
		if present && !v.Present(tick) {
			if err := d.pop.Remove(v.ID); err != nil {
				return err
			}
			d.logger.Debug("vehicle left", "vehicle", v.ID, "tick", tick)
		}
	}

	for _, v := range d.plan.Vehicles {
		if !v.Present(tick) {
			continue
		}
		k := v.KeyframeAt(tick)
		at := ir.Coord{X: k.X, Y: k.Y}
		if _, ok := d.pop.Get(v.ID); !ok {
			if err := d.pop.Add(v.ID, v.Tags, v.Lane, at, k.Speed); err != nil {
				return err
			}
			d.logger.Debug("vehicle entered", "vehicle", v.ID, "tick", tick)
			continue
		}
		if err := d.pop.Move(v.ID, at, k.Speed); err != nil {
			return err
		}
	}

	d.pop.Advance(tick)
	return nil
}
