package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/storyboard/internal/compiler"
	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/store"
	"github.com/roach88/storyboard/internal/testutil"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/traffic"
	"github.com/roach88/storyboard/internal/vehicle"
)

// Harness holds the per-run state of one scenario execution.
type Harness struct {
	store    *store.Store
	board    *engine.Board
	pop      *vehicle.Population
	scenario *Scenario
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile and validate the stories
// 2. Create a board with a fixed run id over an empty population
// 3. Drive the traffic plan, recording every firing
// 4. Read the trace back from the store
// 5. Evaluate assertions
//
// An error means the scenario could not be executed; assertion failures are
// reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with the board and driver logging to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	sc, err := compileStories(scenario.Stories)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	pop := vehicle.NewPopulation()
	board := engine.NewBoard(pop,
		engine.WithRunIDGenerator(testutil.NewFixedRunID(scenario.RunID)),
		engine.WithObserver(store.NewRecorder(ctx, st)),
		engine.WithLogger(logger),
	)
	if _, err := board.RegisterScenario(sc); err != nil {
		return nil, fmt.Errorf("failed to register stories: %w", err)
	}

	run, err := store.NewRun(board.RunID(), sc, scenario.Traffic.Step.Tick(), scenario.Traffic.Until.Tick())
	if err != nil {
		return nil, err
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		board:    board,
		pop:      pop,
		scenario: scenario,
		logger:   logger,
	}
	result, err := h.execute(ctx)
	if err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// execute drives the plan and collects the trace and state snapshots.
func (h *Harness) execute(ctx context.Context) (*Result, error) {
	result := NewResult()
	result.RunID = h.board.RunID()

	wanted := make(map[timeline.Tick]bool)
	for _, a := range h.scenario.Assertions {
		if a.At != nil {
			wanted[a.At.Tick()] = true
		}
	}

	capture := func(report engine.StepReport, pop *vehicle.Population) {
		snap := snapshotByID(pop)
		if wanted[report.Tick] {
			result.states[report.Tick] = snap
		}
		result.final = snap
	}

	driver := traffic.NewDriver(&h.scenario.Traffic, h.pop, h.board,
		traffic.WithLogger(h.logger),
		traffic.WithStepHook(capture),
	)
	summary, err := driver.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to drive traffic: %w", err)
	}
	result.Warnings = summary.Warnings

	trace, err := h.store.ReadFirings(ctx, result.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace
	result.Stories = h.board.Stories()

	h.logger.Info("scenario executed",
		"scenario", h.scenario.Name,
		"ticks", summary.Ticks,
		"firings", len(trace),
	)
	return result, nil
}

// compileStories loads the story file and rejects a scenario that does not
// validate.
func compileStories(path string) (ir.Scenario, error) {
	sc, err := compiler.LoadScenario(path)
	if err != nil {
		return ir.Scenario{}, fmt.Errorf("failed to compile stories: %w", err)
	}
	if errs := compiler.Validate(sc); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return ir.Scenario{}, fmt.Errorf("stories do not validate: %s", strings.Join(msgs, "; "))
	}
	return sc, nil
}
