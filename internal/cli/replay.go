package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/store"
	"github.com/roach88/storyboard/internal/traffic"
	"github.com/roach88/storyboard/internal/vehicle"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
}

// DivergenceResult is the first difference between the two logs.
type DivergenceResult struct {
	Index    int    `json:"index"`
	Field    string `json:"field"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult holds the outcome of a replay.
type ReplayResult struct {
	RunID         string            `json:"run_id"`
	Scenario      string            `json:"scenario"`
	Recorded      int               `json:"recorded"`
	Replayed      int               `json:"replayed"`
	Deterministic bool              `json:"deterministic"`
	Divergence    *DivergenceResult `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario> <traffic.yaml>",
		Short: "Re-run a recorded run and verify it reproduces",
		Long: `Re-run a recorded run in memory and compare the firing logs.

The scenario must compile to the hash stored with the run and the traffic
plan must drive the same ticks. The replayed log must then equal the
recorded one in seq, tick, story, policy and every actuation.

Exit codes:
  0 - Replay reproduced the recorded log
  1 - Replay diverged, or the scenario or plan changed since recording
  2 - Command error (database not found, unknown run, etc.)

Examples:
  storyboard replay --db ./storyboard.db ./scenario.cue ./traffic.yaml
  storyboard replay --db ./storyboard.db --run 0192f0c4-... ./scenario.cue ./traffic.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite firing log (default storyboard.db)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (default: latest run)")

	return cmd
}

func runReplay(opts *ReplayOptions, scenarioPath, planPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	log := opts.log()
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.database(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := selectRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	loaded, err := LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile scenario", err)
	}
	plan, err := traffic.Load(planPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load traffic plan", err)
	}

	result := ReplayResult{RunID: run.ID, Scenario: run.ScenarioName}

	// Inputs that differ from the recording make the comparison meaningless.
	switch {
	case loaded.Hash != run.ScenarioHash:
		result.Divergence = &DivergenceResult{Field: "scenario_hash", Recorded: run.ScenarioHash, Replayed: loaded.Hash}
	case plan.Step.Tick() != run.Step || plan.Until.Tick() != run.Until:
		result.Divergence = &DivergenceResult{
			Field:    "plan",
			Recorded: fmt.Sprintf("every %s until %s", run.Step, run.Until),
			Replayed: fmt.Sprintf("every %s until %s", plan.Step.Tick(), plan.Until.Tick()),
		}
	}
	if result.Divergence != nil {
		return outputReplay(formatter, result)
	}

	recorded, err := st.ReadFirings(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firing log", err)
	}

	log.Info("replaying run", "run_id", run.ID, "recorded", len(recorded))
	pop := vehicle.NewPopulation()
	board := engine.NewBoard(pop, engine.WithRunID(run.ID), engine.WithLogger(log))
	if _, err := board.RegisterScenario(loaded.Scenario); err != nil {
		return WrapExitError(ExitCommandError, "failed to register stories", err)
	}
	sum, err := traffic.NewDriver(plan, pop, board, traffic.WithLogger(log)).Run(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	result.Recorded = len(recorded)
	result.Replayed = len(sum.Firings)
	if d := engine.CompareFirings(recorded, sum.Firings); d != nil {
		log.Warn("replay diverged", "divergence", d.String())
		result.Divergence = &DivergenceResult{Index: d.Index, Field: d.Field, Recorded: d.Recorded, Replayed: d.Replayed}
	}
	return outputReplay(formatter, result)
}

// selectRun reads the named run, or the most recent one when id is empty.
func selectRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	if id != "" {
		run, err := st.ReadRun(ctx, id)
		if err != nil {
			return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
		}
		return run, nil
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if len(runs) == 0 {
		return store.Run{}, NewExitError(ExitCommandError, "no runs recorded")
	}
	// UUIDv7 ids sort in creation order.
	return runs[len(runs)-1], nil
}

// outputReplay writes the result and returns an ExitFailure error when the
// replay diverged.
func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	result.Deterministic = result.Divergence == nil

	if formatter.JSON() {
		if err := formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "Run: %s (%s)\n", result.RunID, result.Scenario)
		fmt.Fprintf(w, "  Recorded: %d firing(s)\n", result.Recorded)
		fmt.Fprintf(w, "  Replayed: %d firing(s)\n", result.Replayed)
		fmt.Fprintln(w)
		if d := result.Divergence; d != nil {
			fmt.Fprintln(w, "✗ Replay diverged")
			fmt.Fprintf(w, "  firing %d: %s differs\n", d.Index, d.Field)
			fmt.Fprintf(w, "  recorded: %s\n", d.Recorded)
			fmt.Fprintf(w, "  replayed: %s\n", d.Replayed)
		} else {
			fmt.Fprintln(w, "✓ Replay reproduced the recorded log")
		}
	}

	if d := result.Divergence; d != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("replay diverged: %s", d.Field))
	}
	return nil
}
