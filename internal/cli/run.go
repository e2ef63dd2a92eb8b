package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/compiler"
	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/logger"
	"github.com/roach88/storyboard/internal/publish"
	"github.com/roach88/storyboard/internal/store"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/traffic"
	"github.com/roach88/storyboard/internal/vehicle"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Redis    string
	RunID    string

	// RunIDGenerator overrides run id generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// StoryResult is the end state of one story.
type StoryResult struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
	State  string `json:"state"`
	Fires  int    `json:"fires"`
}

// RunResult summarizes a recorded run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Scenario     string        `json:"scenario"`
	ScenarioHash string        `json:"scenario_hash"`
	Database     string        `json:"database"`
	Ticks        int           `json:"ticks"`
	LastTick     timeline.Tick `json:"last_tick"`
	Firings      int           `json:"firings"`
	Stories      []StoryResult `json:"stories"`
	Warnings     []string      `json:"warnings,omitempty"`
	Interrupted  bool          `json:"interrupted,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario> <traffic.yaml>",
		Short: "Run a scenario against a scripted traffic plan",
		Long: `Run a compiled scenario against a traffic plan and record every firing.

The board is stepped once per plan tick. Each firing is written to the
SQLite firing log and, when a Redis URL is configured, published on the
storyboard:<run-id>:firings channel as it happens.

Example:
  storyboard run --db ./storyboard.db ./scenario.cue ./traffic.yaml
  storyboard run --redis redis://localhost:6379/0 ./scenario.cue ./traffic.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite firing log (default storyboard.db)")
	cmd.Flags().StringVar(&opts.Redis, "redis", "", "Redis URL for the live firing feed")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: generated UUIDv7)")

	return cmd
}

func runScenario(opts *RunOptions, scenarioPath, planPath string, cmd *cobra.Command) error {
	log := opts.log()
	formatter := opts.formatter(cmd)

	log.Info("compiling scenario", "path", scenarioPath)
	loaded, err := LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile scenario", err)
	}
	if errs := compiler.Validate(loaded.Scenario); len(errs) > 0 {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenario does not validate (%d error(s))", len(errs)), errs[0])
	}

	plan, err := traffic.Load(planPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load traffic plan", err)
	}

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return NewExitError(ExitCommandError, "database path required: pass --db or set STORYBOARD_DB")
	}
	log.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	// Writes use their own context so a firing in flight when a signal
	// arrives is still recorded; the signal only stops the driver.
	ctx := context.Background()
	runCtx, cancel := signalContext(cmd, log)
	defer cancel()

	runID := opts.RunID
	if runID == "" {
		gen := opts.RunIDGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		runID = gen.Generate()
	}
	log = logger.WithRunID(log, runID)

	pop := vehicle.NewPopulation()
	boardOpts := []engine.BoardOption{
		engine.WithRunID(runID),
		engine.WithLogger(log),
		engine.WithObserver(store.NewRecorder(ctx, st)),
	}

	var pub *publish.Publisher
	if url := opts.redisURL(opts.Redis); url != "" {
		pub, err = publish.Connect(ctx, url, runID, log)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start firing feed", err)
		}
		defer pub.Close()
		boardOpts = append(boardOpts, engine.WithObserver(pub))
	}

	board := engine.NewBoard(pop, boardOpts...)
	if _, err := board.RegisterScenario(loaded.Scenario); err != nil {
		return WrapExitError(ExitCommandError, "failed to register stories", err)
	}

	run, err := store.NewRun(runID, loaded.Scenario, plan.Step.Tick(), plan.Until.Tick())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	if err := st.WriteRun(ctx, run); err != nil {
		if errors.Is(err, store.ErrRunConflict) {
			opts.formatter(cmd).Error(ErrCodeStore, fmt.Sprintf("run %s already records a different run", runID), err.Error())
		}
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}

	if pub != nil {
		if err := pub.RunStarted(loaded.Scenario.Name, len(loaded.Scenario.Stories)); err != nil {
			logger.WithError(log, err).Warn("run.started not published")
		}
	}

	log.Info("run starting", "stories", len(loaded.Scenario.Stories), "until", plan.Until.Tick())
	sum, runErr := traffic.NewDriver(plan, pop, board, traffic.WithLogger(log)).Run(runCtx)
	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if pub != nil {
		if err := pub.RunCompleted(sum.LastTick, len(sum.Firings)); err != nil {
			logger.WithError(log, err).Warn("run.completed not published")
		}
	}
	log.Info("run finished", "ticks", sum.Ticks, "firings", len(sum.Firings), "interrupted", interrupted)

	result := RunResult{
		RunID:        runID,
		Scenario:     loaded.Scenario.Name,
		ScenarioHash: loaded.Hash,
		Database:     dbPath,
		Ticks:        sum.Ticks,
		LastTick:     sum.LastTick,
		Firings:      len(sum.Firings),
		Stories:      storyResults(board.Stories()),
		Warnings:     sum.Warnings,
		Interrupted:  interrupted,
	}
	if err := outputRunResult(formatter, result); err != nil {
		return err
	}
	if interrupted {
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, derived
// from the command's context when it has one (tests).
func signalContext(cmd *cobra.Command, log *slog.Logger) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

func storyResults(stories []engine.StoryStatus) []StoryResult {
	out := make([]StoryResult, len(stories))
	for i, s := range stories {
		out[i] = StoryResult{
			ID:     s.ID,
			Policy: string(s.Policy),
			State:  string(s.State),
			Fires:  s.Fires,
		}
	}
	return out
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	w := formatter.Writer
	mark := "✓"
	if result.Interrupted {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Run %s\n", mark, result.RunID)
	fmt.Fprintf(w, "  Scenario: %s (%s)\n", result.Scenario, result.ScenarioHash[:12])
	fmt.Fprintf(w, "  Ticks: %d (last %s)\n", result.Ticks, result.LastTick)
	fmt.Fprintf(w, "  Firings: %d\n", result.Firings)
	for _, s := range result.Stories {
		fmt.Fprintf(w, "    %s: %d (%s, %s)\n", s.ID, s.Fires, s.Policy, s.State)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  Warning: %s\n", warning)
	}
	if result.Interrupted {
		fmt.Fprintln(w, "  Interrupted before the end of the plan")
	}
	fmt.Fprintf(w, "  Recorded in %s\n", result.Database)
	return nil
}
