package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// ErrRunNotFound is returned when a run id has no header row.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns the header of a run.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario_name, scenario_hash, scenario, step_ms, until_ms, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run header ordered by id.
// Run ids are UUIDv7, so id order is creation order.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario_name, scenario_hash, scenario, step_ms, until_ms, engine_version, ir_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadFirings returns every firing of a run in seq order, with actuations in
// the order they were applied.
//
// Returns an empty slice (not nil) if the run has no firings.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]engine.Firing, error) {
	return s.readFirings(ctx, `
		SELECT run_id, seq, tick, story_id, policy
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadStoryFirings returns the firings of one story in a run, in seq order.
func (s *Store) ReadStoryFirings(ctx context.Context, runID, storyID string) ([]engine.Firing, error) {
	return s.readFirings(ctx, `
		SELECT run_id, seq, tick, story_id, policy
		FROM firings
		WHERE run_id = ? AND story_id = ?
		ORDER BY seq ASC
	`, runID, storyID)
}

func (s *Store) readFirings(ctx context.Context, query string, args ...any) ([]engine.Firing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []engine.Firing{}
	for rows.Next() {
		var (
			f      engine.Firing
			tick   int64
			policy string
		)
		if err := rows.Scan(&f.RunID, &f.Seq, &tick, &f.StoryID, &policy); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.Tick = timeline.Tick(tick)
		f.Policy = ir.Policy(policy)
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	rows.Close()

	// Actuations are read after the firing cursor is closed: the store holds
	// a single connection.
	for i := range firings {
		acts, err := s.readActuations(ctx, firings[i].RunID, firings[i].Seq)
		if err != nil {
			return nil, err
		}
		firings[i].Actuations = acts
	}
	return firings, nil
}

func (s *Store) readActuations(ctx context.Context, runID string, seq int64) ([]engine.Actuation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vehicle, effect, value, outcome, error
		FROM actuations
		WHERE run_id = ? AND seq = ?
		ORDER BY idx ASC
	`, runID, seq)
	if err != nil {
		return nil, fmt.Errorf("query actuations: %w", err)
	}
	defer rows.Close()

	acts := []engine.Actuation{}
	for rows.Next() {
		var a engine.Actuation
		var effect, outcome string
		if err := rows.Scan(&a.Vehicle, &effect, &a.Value, &outcome, &a.Error); err != nil {
			return nil, fmt.Errorf("scan actuation: %w", err)
		}
		a.Effect = ir.EffectKind(effect)
		a.Outcome = engine.Outcome(outcome)
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actuations: %w", err)
	}
	return acts, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run         Run
		step, until int64
	)
	err := row.Scan(&run.ID, &run.ScenarioName, &run.ScenarioHash, &run.Scenario,
		&step, &until, &run.EngineVersion, &run.IRVersion)
	if err != nil {
		return Run{}, err
	}
	run.Step = timeline.Tick(step)
	run.Until = timeline.Tick(until)
	return run, nil
}
