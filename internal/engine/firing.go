package engine

import (
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// Firing is one story firing: the story, the tick, and every actuation it
// produced. Seq totally orders the firings of a run.
type Firing struct {
	Seq        int64         `json:"seq"`
	RunID      string        `json:"run_id"`
	Tick       timeline.Tick `json:"tick"`
	StoryID    string        `json:"story_id"`
	Policy     ir.Policy     `json:"policy"`
	Actuations []Actuation   `json:"actuations"`
}

// Vehicles returns the distinct vehicles the firing acted on, in order.
func (f Firing) Vehicles() []string {
	var out []string
	for _, a := range f.Actuations {
		if len(out) == 0 || out[len(out)-1] != a.Vehicle {
			out = append(out, a.Vehicle)
		}
	}
	return out
}

// Digest identifies the content of a firing, excluding its run id, so that
// a replayed firing digests equal to the recorded one.
func (f Firing) Digest() (string, error) {
	acts := make([]any, len(f.Actuations))
	for i, a := range f.Actuations {
		acts[i] = map[string]any{
			"vehicle": a.Vehicle,
			"effect":  string(a.Effect),
			"value":   a.Value,
			"outcome": string(a.Outcome),
		}
	}
	return ir.ContentHash(ir.DomainFiring, map[string]any{
		"seq":        f.Seq,
		"tick":       int64(f.Tick),
		"story_id":   f.StoryID,
		"policy":     string(f.Policy),
		"actuations": acts,
	})
}

// FiringObserver is notified synchronously of every firing, in seq order.
// An observer error is logged and reported as a step warning; it never
// affects story state.
type FiringObserver interface {
	ObserveFiring(f Firing) error
}

// FiringObserverFunc adapts a function to FiringObserver.
type FiringObserverFunc func(f Firing) error

func (fn FiringObserverFunc) ObserveFiring(f Firing) error { return fn(f) }
