package engine

import "fmt"

// Replay
//
// A run is reproducible: the board evaluates stories in registration order,
// stamps firings from a logical clock, and resolves targets in sorted order.
// Given the same scenario, the same traffic and the same tick sequence, a
// second run produces a firing log equal to the first in every field except
// the run id.
//
// CompareFirings checks that property against a recorded log. Actuation
// error text is not compared since it comes from the kernel.

// Divergence is the first difference between a recorded and a replayed
// firing log.
type Divergence struct {
	Index    int    // position in the log
	Field    string // "count", "seq", "tick", "story_id", "policy", "actuations" or "actuations[i]"
	Recorded string
	Replayed string
}

func (d *Divergence) String() string {
	return fmt.Sprintf("firing %d: %s differs: recorded %s, replayed %s", d.Index, d.Field, d.Recorded, d.Replayed)
}

// CompareFirings returns nil when replayed reproduces recorded exactly.
func CompareFirings(recorded, replayed []Firing) *Divergence {
	n := min(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		if d := compareFiring(i, recorded[i], replayed[i]); d != nil {
			return d
		}
	}
	if len(recorded) != len(replayed) {
		return &Divergence{
			Index:    n,
			Field:    "count",
			Recorded: fmt.Sprintf("%d firings", len(recorded)),
			Replayed: fmt.Sprintf("%d firings", len(replayed)),
		}
	}
	return nil
}

func compareFiring(i int, a, b Firing) *Divergence {
	diff := func(field string, x, y any) *Divergence {
		return &Divergence{Index: i, Field: field, Recorded: fmt.Sprint(x), Replayed: fmt.Sprint(y)}
	}
	switch {
	case a.Seq != b.Seq:
		return diff("seq", a.Seq, b.Seq)
	case a.Tick != b.Tick:
		return diff("tick", a.Tick, b.Tick)
	case a.StoryID != b.StoryID:
		return diff("story_id", a.StoryID, b.StoryID)
	case a.Policy != b.Policy:
		return diff("policy", a.Policy, b.Policy)
	case len(a.Actuations) != len(b.Actuations):
		return diff("actuations", len(a.Actuations), len(b.Actuations))
	}
	for j := range a.Actuations {
		x, y := a.Actuations[j], b.Actuations[j]
		if x.Vehicle != y.Vehicle || x.Effect != y.Effect || x.Value != y.Value || x.Outcome != y.Outcome {
			return diff(fmt.Sprintf("actuations[%d]", j), formatActuation(x), formatActuation(y))
		}
	}
	return nil
}

func formatActuation(a Actuation) string {
	return fmt.Sprintf("%s %s=%s (%s)", a.Vehicle, a.Effect, a.Value, a.Outcome)
}
