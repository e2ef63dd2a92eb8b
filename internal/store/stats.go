package store

import (
	"context"
	"fmt"

	"github.com/roach88/storyboard/internal/timeline"
)

// RunStats summarizes a recorded run.
type RunStats struct {
	RunID      string         `json:"run_id"`
	Firings    int            `json:"firings"`
	Actuations int            `json:"actuations"`
	NotApplied int            `json:"not_applied"` // departed or failed actuations
	LastSeq    int64          `json:"last_seq"`
	LastTick   timeline.Tick  `json:"last_tick"`
	ByStory    map[string]int `json:"by_story"`
}

// GetRunStats aggregates the firing log of a run.
// Returns ErrRunNotFound if the run has no header row.
func (s *Store) GetRunStats(ctx context.Context, runID string) (RunStats, error) {
	if _, err := s.ReadRun(ctx, runID); err != nil {
		return RunStats{}, fmt.Errorf("get run stats: %w", err)
	}

	stats := RunStats{RunID: runID, ByStory: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT story_id, COUNT(*), MAX(seq), MAX(tick)
		FROM firings
		WHERE run_id = ?
		GROUP BY story_id
		ORDER BY story_id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return RunStats{}, fmt.Errorf("get run stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			story         string
			count         int
			maxSeq, maxTk int64
		)
		if err := rows.Scan(&story, &count, &maxSeq, &maxTk); err != nil {
			return RunStats{}, fmt.Errorf("get run stats: scan: %w", err)
		}
		stats.ByStory[story] = count
		stats.Firings += count
		stats.LastSeq = max(stats.LastSeq, maxSeq)
		stats.LastTick = max(stats.LastTick, timeline.Tick(maxTk))
	}
	if err := rows.Err(); err != nil {
		return RunStats{}, fmt.Errorf("get run stats: %w", err)
	}
	rows.Close()

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN outcome != 'applied' THEN 1 ELSE 0 END), 0)
		FROM actuations
		WHERE run_id = ?
	`, runID).Scan(&stats.Actuations, &stats.NotApplied)
	if err != nil {
		return RunStats{}, fmt.Errorf("get run stats: actuations: %w", err)
	}
	return stats, nil
}
