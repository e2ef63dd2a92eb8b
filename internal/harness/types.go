package harness

import (
	"github.com/samber/lo"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// RunID is the run id the board stamped on every firing.
	RunID string `json:"run_id"`

	// Trace holds the firings read back from the store, in seq order.
	Trace []engine.Firing `json:"trace"`

	// Stories is the status of every story after the last tick.
	Stories []engine.StoryStatus `json:"stories"`

	// Warnings collects the step warnings of the run.
	Warnings []string `json:"warnings,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// states holds population snapshots keyed by tick, for vehicle_state
	// assertions. final is the snapshot after the last tick.
	states map[timeline.Tick]map[string]vehicle.State
	final  map[string]vehicle.State
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.Firing{},
		Errors: []string{},
		states: make(map[timeline.Tick]map[string]vehicle.State),
		final:  make(map[string]vehicle.State),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// StoryFirings returns the firings of one story, in order.
func (r *Result) StoryFirings(story string) []engine.Firing {
	var out []engine.Firing
	for _, f := range r.Trace {
		if f.StoryID == story {
			out = append(out, f)
		}
	}
	return out
}

// Story returns the final status of a story.
func (r *Result) Story(id string) (engine.StoryStatus, bool) {
	for _, s := range r.Stories {
		if s.ID == id {
			return s, true
		}
	}
	return engine.StoryStatus{}, false
}

// VehicleAt returns a vehicle's state at tick, or after the last tick when
// at is nil. The second result is false if the tick was never captured; the
// third is false if the vehicle was not present.
func (r *Result) VehicleAt(id string, at *timeline.Tick) (vehicle.State, bool, bool) {
	states := r.final
	if at != nil {
		var ok bool
		states, ok = r.states[*at]
		if !ok {
			return vehicle.State{}, false, false
		}
	}
	v, present := states[id]
	return v, true, present
}

func snapshotByID(pop *vehicle.Population) map[string]vehicle.State {
	return lo.KeyBy(pop.Snapshot(), func(v vehicle.State) string { return v.ID })
}
