package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/storyboard/internal/engine"
)

// ErrFiringConflict is returned when a firing is written under a (run_id,
// seq) that already holds a different firing.
var ErrFiringConflict = errors.New("firing conflicts with recorded firing")

// ErrRunConflict is returned when a run header is written under an id that
// already records a different scenario or plan.
var ErrRunConflict = errors.New("run id already records a different run")

// WriteRun inserts a run header. Writing the same header again is a no-op;
// writing a header whose scenario hash or plan timing differs from the one
// recorded under the same id returns ErrRunConflict.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario_name, scenario_hash, scenario, step_ms, until_ms, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ScenarioName,
		run.ScenarioHash,
		run.Scenario,
		int64(run.Step),
		int64(run.Until),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n > 0 {
		return nil
	}

	existing, err := s.ReadRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	switch {
	case existing.ScenarioHash != run.ScenarioHash:
		return fmt.Errorf("write run %q: scenario hash %.12s, recorded %.12s: %w",
			run.ID, run.ScenarioHash, existing.ScenarioHash, ErrRunConflict)
	case existing.Step != run.Step || existing.Until != run.Until:
		return fmt.Errorf("write run %q: plan every %s until %s, recorded every %s until %s: %w",
			run.ID, run.Step, run.Until, existing.Step, existing.Until, ErrRunConflict)
	}
	return nil
}

// WriteFiring inserts a firing and its actuations in one transaction.
// Returns whether a new record was inserted.
//
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency. When the firing
// already exists its digest is compared: an identical firing returns
// inserted=false, a different one returns ErrFiringConflict.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteFiring(ctx context.Context, f engine.Firing) (inserted bool, err error) {
	digest, err := f.Digest()
	if err != nil {
		return false, fmt.Errorf("write firing: %w", err)
	}

	// Use a transaction so a firing is never visible without its actuations
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write firing: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO firings
		(run_id, seq, tick, story_id, policy, digest)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		f.RunID,
		f.Seq,
		int64(f.Tick),
		f.StoryID,
		string(f.Policy),
		digest,
	)
	if err != nil {
		return false, fmt.Errorf("write firing: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write firing: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Conflict - row already exists, check it is the same firing
		var existing string
		err = tx.QueryRowContext(ctx, `
			SELECT digest FROM firings WHERE run_id = ? AND seq = ?
		`, f.RunID, f.Seq).Scan(&existing)
		if err != nil {
			return false, fmt.Errorf("write firing: fetch existing: %w", err)
		}
		if existing != digest {
			return false, fmt.Errorf("write firing %s/%d: %w", f.RunID, f.Seq, ErrFiringConflict)
		}
		return false, nil
	}

	for i, a := range f.Actuations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO actuations
			(run_id, seq, idx, vehicle, effect, value, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			f.RunID,
			f.Seq,
			i,
			a.Vehicle,
			string(a.Effect),
			a.Value,
			string(a.Outcome),
			a.Error,
		)
		if err != nil {
			return false, fmt.Errorf("write firing: insert actuation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write firing: commit: %w", err)
	}
	return true, nil
}
