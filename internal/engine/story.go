package engine

import (
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// StoryState is the firing state of a registered story.
type StoryState string

const (
	// StateArmed waits for a rising edge (or, for continuous stories, a true
	// condition).
	StateArmed StoryState = "armed"
	// StateFired has fired and waits for the condition to fall.
	StateFired StoryState = "fired"
	// StateDone is terminal: a single-shot story that has fired. It is never
	// evaluated again.
	StateDone StoryState = "done"
)

// StoryStatus is a read-only view of a registered story.
type StoryStatus struct {
	ID        string
	Policy    ir.Policy
	State     StoryState
	Fires     int
	LastFired timeline.Tick // meaningful only when Fires > 0
	Condition bool          // value at the last evaluation
}

// storyRuntime is the private state a board keeps per registered story.
type storyRuntime struct {
	id    string
	spec  ir.Story
	state StoryState
	prev  bool
	fires int
	last  timeline.Tick
}

func newStoryRuntime(id string, spec ir.Story) *storyRuntime {
	return &storyRuntime{id: id, spec: spec, state: StateArmed}
}

// advance feeds the condition value for tick into the state machine and
// reports whether the story fires on this tick.
//
// The previous value starts false, so a condition already true on the first
// evaluation is a rising edge.
func (r *storyRuntime) advance(cond bool, tick timeline.Tick) bool {
	rising := cond && !r.prev
	r.prev = cond

	fire := false
	switch r.spec.Policy {
	case ir.PolicySingleShot:
		if r.state == StateArmed && rising {
			fire = true
			r.state = StateDone
		}
	case ir.PolicyRetriggerable:
		switch {
		case r.state == StateArmed && rising:
			fire = true
			r.state = StateFired
		case r.state == StateFired && !cond:
			r.state = StateArmed
		}
	case ir.PolicyContinuous:
		if cond {
			fire = true
			r.state = StateFired
		} else {
			r.state = StateArmed
		}
	}
	if fire {
		r.fires++
		r.last = tick
	}
	return fire
}

func (r *storyRuntime) status() StoryStatus {
	return StoryStatus{
		ID:        r.id,
		Policy:    r.spec.Policy,
		State:     r.state,
		Fires:     r.fires,
		LastFired: r.last,
		Condition: r.prev,
	}
}
