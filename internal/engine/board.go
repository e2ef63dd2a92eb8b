package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// Board evaluates registered stories once per tick and dispatches their
// effects to the kernel.
//
// Stories are evaluated in registration order, and firings are stamped from
// the board's Clock in that order, so two runs over the same inputs produce
// the same firing log.
//
// Thread-safety model: a Board is owned by the kernel loop. Step must not be
// called concurrently, and observers run inside Step.
//
// INVARIANTS:
//   - stories order never changes after registration
//   - story ids are unique
//   - ticks passed to Step strictly increase
type Board struct {
	kernel    vehicle.Kernel
	logger    *slog.Logger
	observers []FiringObserver
	runID     string
	runIDGen  RunIDGenerator
	clock     *Clock

	stories []*storyRuntime
	index   map[string]*storyRuntime

	sealed   bool
	lastTick timeline.Tick
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithLogger sets the board's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

// WithObserver adds a firing observer. Observers are notified in the order
// they were added.
func WithObserver(o FiringObserver) BoardOption {
	return func(b *Board) { b.observers = append(b.observers, o) }
}

// WithRunID fixes the run id. It takes precedence over WithRunIDGenerator.
func WithRunID(id string) BoardOption {
	return func(b *Board) { b.runID = id }
}

// WithRunIDGenerator sets the generator used when no run id is given.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) BoardOption {
	return func(b *Board) { b.runIDGen = g }
}

// NewBoard creates a board acting on kernel. The board has no stories until
// they are registered.
func NewBoard(kernel vehicle.Kernel, opts ...BoardOption) *Board {
	b := &Board{
		kernel:   kernel,
		logger:   slog.Default(),
		runIDGen: UUIDv7Generator{},
		clock:    NewClock(),
		index:    make(map[string]*storyRuntime),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.runID == "" {
		b.runID = b.runIDGen.Generate()
	}
	b.logger = b.logger.With("run_id", b.runID)
	return b
}

// RegisterStory appends a story and returns its id: the story's name, or
// "story-N" for the N-th registered story when it is unnamed.
//
// Registration is only allowed before the first Step. Stories are checked
// with ir.Story.Validate, so a literal with no effects, policy or target
// mode is rejected here with an *ir.ConfigError rather than misbehaving
// during a run.
func (b *Board) RegisterStory(s ir.Story) (string, error) {
	if b.sealed {
		return "", ErrBoardSealed
	}
	id := s.Name
	if id == "" {
		id = fmt.Sprintf("story-%d", len(b.stories)+1)
	}
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("register story %q: %w", id, err)
	}
	if _, ok := b.index[id]; ok {
		return "", fmt.Errorf("register story %q: %w", id, ErrDuplicateStory)
	}
	rt := newStoryRuntime(id, s)
	b.stories = append(b.stories, rt)
	b.index[id] = rt

	b.logger.Debug("story registered",
		"story", id,
		"policy", s.Policy,
		"targets", s.Targets.Mode,
		"effects", len(s.Then),
	)
	return id, nil
}

// RegisterScenario registers every story of sc in order. It stops at the
// first error; stories registered before it stay registered.
func (b *Board) RegisterScenario(sc ir.Scenario) ([]string, error) {
	ids := make([]string, 0, len(sc.Stories))
	for _, s := range sc.Stories {
		id, err := b.RegisterStory(s)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// StepReport summarizes one Step.
type StepReport struct {
	Tick      timeline.Tick
	Evaluated int
	Firings   []Firing
	Warnings  []string
}

// Step evaluates every live story at tick, in registration order.
//
// For each story that fires, the target vehicles are resolved, every effect
// is applied, and the resulting Firing is passed to the observers before the
// next story is evaluated. Effects applied by an earlier story are therefore
// visible to the conditions of later stories on the same tick.
//
// Step returns a *RuntimeError with ErrCodeTickRegression, and does nothing,
// when tick is not after the previous step's tick.
func (b *Board) Step(tick timeline.Tick) (StepReport, error) {
	if b.sealed && tick <= b.lastTick {
		return StepReport{}, NewTickRegressionError(tick, b.lastTick)
	}
	if tick < 0 {
		return StepReport{}, NewTickRegressionError(tick, 0)
	}
	b.sealed = true
	b.lastTick = tick

	report := StepReport{Tick: tick}
	for _, rt := range b.stories {
		if rt.state == StateDone {
			continue
		}
		report.Evaluated++

		cond := Evaluate(rt.spec.When, tick, b.kernel)
		fire := rt.advance(cond, tick)
		b.logger.Debug("story evaluated",
			"story", rt.id,
			"tick", int64(tick),
			"condition", cond,
			"state", rt.state,
		)
		if !fire {
			continue
		}

		f := b.fire(rt, tick)
		report.Firings = append(report.Firings, f)
		report.Warnings = append(report.Warnings, b.warnings(f)...)
		report.Warnings = append(report.Warnings, b.notify(f)...)
	}
	return report, nil
}

func (b *Board) fire(rt *storyRuntime, tick timeline.Tick) Firing {
	targets := ResolveTargets(rt.spec, tick, b.kernel)
	f := Firing{
		Seq:        b.clock.Next(),
		RunID:      b.runID,
		Tick:       tick,
		StoryID:    rt.id,
		Policy:     rt.spec.Policy,
		Actuations: Apply(rt.spec.Then, targets, b.kernel),
	}
	b.logger.Info("story fired",
		"story", rt.id,
		"tick", int64(tick),
		"seq", f.Seq,
		"vehicles", len(targets),
		"actuations", len(f.Actuations),
	)
	return f
}

func (b *Board) warnings(f Firing) []string {
	var out []string
	for _, a := range f.Actuations {
		if a.Outcome == OutcomeApplied {
			continue
		}
		msg := fmt.Sprintf("story %s: %s on %s %s: %s", f.StoryID, a.Effect, a.Vehicle, a.Outcome, a.Error)
		b.logger.Warn("actuation not applied",
			"story", f.StoryID,
			"tick", int64(f.Tick),
			"vehicle", a.Vehicle,
			"effect", a.Effect,
			"outcome", a.Outcome,
			"error", a.Error,
		)
		out = append(out, msg)
	}
	return out
}

func (b *Board) notify(f Firing) []string {
	var out []string
	for i, o := range b.observers {
		if err := o.ObserveFiring(f); err != nil {
			b.logger.Warn("firing observer failed",
				"story", f.StoryID,
				"seq", f.Seq,
				"observer", i,
				"error", err,
			)
			out = append(out, fmt.Sprintf("observer %d: seq %d: %v", i, f.Seq, err))
		}
	}
	return out
}

// Stories returns the status of every registered story in registration order.
func (b *Board) Stories() []StoryStatus {
	out := make([]StoryStatus, len(b.stories))
	for i, rt := range b.stories {
		out[i] = rt.status()
	}
	return out
}

// Story returns the status of one story.
func (b *Board) Story(id string) (StoryStatus, bool) {
	rt, ok := b.index[id]
	if !ok {
		return StoryStatus{}, false
	}
	return rt.status(), true
}

// RunID returns the run id stamped on every firing.
func (b *Board) RunID() string {
	return b.runID
}

// LastTick returns the tick of the last successful Step, and false before
// the first one.
func (b *Board) LastTick() (timeline.Tick, bool) {
	return b.lastTick, b.sealed
}

// Seq returns the seq of the last firing, 0 if none.
func (b *Board) Seq() int64 {
	return b.clock.Current()
}
