package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/store"
	"github.com/roach88/storyboard/internal/timeline"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Story    string // optional - filter to one story
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Scenario     string        `json:"scenario"`
	ScenarioHash string        `json:"scenario_hash"`
	Step         timeline.Tick `json:"step"`
	Until        timeline.Tick `json:"until"`
	Firings      int           `json:"firings"`
	LastTick     timeline.Tick `json:"last_tick"`
}

// TraceResult holds the firing log of one run.
type TraceResult struct {
	Run     RunSummary      `json:"run"`
	Story   string          `json:"story,omitempty"`
	Firings []engine.Firing `json:"firings"`
	Stats   store.RunStats  `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs and their firing logs",
		Long: `Show what was recorded in the firing log.

Without --run, lists every recorded run. With --run, prints the run's
firings in seq order: the tick, the story, and every actuation with its
outcome.

Examples:
  storyboard trace --db ./storyboard.db
  storyboard trace --db ./storyboard.db --run 0192f0c4-...
  storyboard trace --db ./storyboard.db --run 0192f0c4-... --story evw --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite firing log (default storyboard.db)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (default: list runs)")
	cmd.Flags().StringVar(&opts.Story, "story", "", "filter to one story id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.database(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		if opts.Story != "" {
			return NewExitError(ExitCommandError, "--story requires --run")
		}
		runs, err := listRuns(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRunList(formatter, runs)
	}

	result, err := traceRun(ctx, st, opts.RunID, opts.Story)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firing log", err)
	}
	return outputTrace(formatter, result)
}

// openExisting opens a firing log that must already exist. Opening creates
// the file, so a typo in the path would otherwise read as an empty log.
func openExisting(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "database path required: pass --db or set STORYBOARD_DB")
	}
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func listRuns(ctx context.Context, st *store.Store) ([]RunSummary, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		stats, err := st.GetRunStats(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, summarizeRun(run, stats))
	}
	return out, nil
}

func traceRun(ctx context.Context, st *store.Store, runID, story string) (TraceResult, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return TraceResult{}, err
	}
	stats, err := st.GetRunStats(ctx, runID)
	if err != nil {
		return TraceResult{}, err
	}

	var firings []engine.Firing
	if story != "" {
		firings, err = st.ReadStoryFirings(ctx, runID, story)
	} else {
		firings, err = st.ReadFirings(ctx, runID)
	}
	if err != nil {
		return TraceResult{}, err
	}

	return TraceResult{
		Run:     summarizeRun(run, stats),
		Story:   story,
		Firings: firings,
		Stats:   stats,
	}, nil
}

func summarizeRun(run store.Run, stats store.RunStats) RunSummary {
	return RunSummary{
		RunID:        run.ID,
		Scenario:     run.ScenarioName,
		ScenarioHash: run.ScenarioHash,
		Step:         run.Step,
		Until:        run.Until,
		Firings:      stats.Firings,
		LastTick:     stats.LastTick,
	}
}

func outputRunList(formatter *OutputFormatter, runs []RunSummary) error {
	if formatter.JSON() {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%d run(s)\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %d firing(s), until %s\n", r.RunID, r.Scenario, r.Firings, r.Until)
	}
	return nil
}

func outputTrace(formatter *OutputFormatter, result TraceResult) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: result.Run.RunID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run: %s\n", result.Run.RunID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", result.Run.Scenario, result.Run.ScenarioHash)
	fmt.Fprintf(w, "Ticks: every %s until %s\n", result.Run.Step, result.Run.Until)
	if result.Story != "" {
		fmt.Fprintf(w, "Story: %s\n", result.Story)
	}
	fmt.Fprintln(w)

	if len(result.Firings) == 0 {
		fmt.Fprintln(w, "No firings recorded.")
	}
	for _, f := range result.Firings {
		fmt.Fprintf(w, "[%d] %s %s (%s)\n", f.Seq, f.Tick, f.StoryID, f.Policy)
		if len(f.Actuations) == 0 {
			fmt.Fprintln(w, "    no targets")
		}
		for _, a := range f.Actuations {
			line := fmt.Sprintf("    %s %s=%s %s", a.Vehicle, a.Effect, a.Value, a.Outcome)
			if a.Error != "" {
				line += ": " + a.Error
			}
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d firing(s), %d actuation(s), %d not applied\n",
		result.Stats.Firings, result.Stats.Actuations, result.Stats.NotApplied)
	if len(result.Stats.ByStory) > 0 {
		parts := make([]string, 0, len(result.Stats.ByStory))
		for _, s := range sortedKeys(result.Stats.ByStory) {
			parts = append(parts, fmt.Sprintf("%s=%d", s, result.Stats.ByStory[s]))
		}
		fmt.Fprintf(w, "By story: %s\n", strings.Join(parts, " "))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sortedKeys(m map[string]int) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
