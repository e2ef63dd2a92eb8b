package store

import (
	"context"

	"github.com/roach88/storyboard/internal/engine"
)

// Recorder writes every firing a board produces to the store. It implements
// engine.FiringObserver.
//
// The board calls observers synchronously, so a recorded run is complete
// once the last Step returns.
type Recorder struct {
	ctx   context.Context
	store *Store
}

// NewRecorder creates a recorder. ctx bounds every write.
func NewRecorder(ctx context.Context, s *Store) *Recorder {
	return &Recorder{ctx: ctx, store: s}
}

// ObserveFiring implements engine.FiringObserver.
func (r *Recorder) ObserveFiring(f engine.Firing) error {
	_, err := r.store.WriteFiring(r.ctx, f)
	return err
}

var _ engine.FiringObserver = (*Recorder)(nil)
