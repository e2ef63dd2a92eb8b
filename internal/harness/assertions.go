package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// speedFactorTolerance bounds float comparison of speed factors.
const speedFactorTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []engine.Firing // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, f := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", f.Seq, f.Tick, f.StoryID, f.Vehicles())
		}
	}
	return buf.String()
}

// assertFiredCount checks the story fired exactly Count times.
func assertFiredCount(result *Result, a Assertion) error {
	n := len(result.StoryFirings(a.Story))
	if n != a.Count {
		return &AssertionError{
			Type:     AssertFiredCount,
			Expected: fmt.Sprintf("%d firings of %s", a.Count, a.Story),
			Actual:   fmt.Sprintf("%d firings", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFiredAt checks the story fired at exactly the listed ticks.
func assertFiredAt(result *Result, a Assertion) error {
	want := make([]timeline.Tick, len(a.Ticks))
	for i, t := range a.Ticks {
		want[i] = t.Tick()
	}
	firings := result.StoryFirings(a.Story)
	got := make([]timeline.Tick, len(firings))
	for i, f := range firings {
		got[i] = f.Tick
	}

	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFiredAt,
			Expected: fmt.Sprintf("%s fired at %v", a.Story, want),
			Actual:   fmt.Sprintf("fired at %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertNeverFired checks the story has no firing in the trace.
func assertNeverFired(result *Result, a Assertion) error {
	firings := result.StoryFirings(a.Story)
	if len(firings) > 0 {
		return &AssertionError{
			Type:     AssertNeverFired,
			Expected: fmt.Sprintf("%s never fired", a.Story),
			Actual:   fmt.Sprintf("first fired at %s (seq %d)", firings[0].Tick, firings[0].Seq),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStoryState checks a story's final firing state.
func assertStoryState(result *Result, a Assertion) error {
	status, ok := result.Story(a.Story)
	if !ok {
		return &AssertionError{
			Type:     AssertStoryState,
			Expected: fmt.Sprintf("story %s in state %s", a.Story, a.State),
			Actual:   "story not registered",
		}
	}
	if string(status.State) != a.State {
		return &AssertionError{
			Type:     AssertStoryState,
			Expected: fmt.Sprintf("story %s in state %s", a.Story, a.State),
			Actual:   fmt.Sprintf("state %s after %d firings", status.State, status.Fires),
		}
	}
	return nil
}

// assertVehicleState checks a vehicle's attributes using subset semantics.
func assertVehicleState(result *Result, a Assertion) error {
	var at *timeline.Tick
	where := "after the last tick"
	if a.At != nil {
		t := a.At.Tick()
		at = &t
		where = "at " + t.String()
	}

	v, captured, present := result.VehicleAt(a.Vehicle, at)
	if !captured {
		return &AssertionError{
			Type:     AssertVehicleState,
			Expected: fmt.Sprintf("vehicle %s %s", a.Vehicle, where),
			Actual:   "tick is not driven by the traffic plan",
		}
	}

	exp := a.Expect
	wantPresent := exp.Present == nil || *exp.Present
	if present != wantPresent {
		return &AssertionError{
			Type:     AssertVehicleState,
			Expected: fmt.Sprintf("vehicle %s present=%t %s", a.Vehicle, wantPresent, where),
			Actual:   fmt.Sprintf("present=%t", present),
		}
	}
	if !present {
		return nil
	}

	if mismatch := compareVehicle(v, exp); mismatch != "" {
		return &AssertionError{
			Type:     AssertVehicleState,
			Expected: fmt.Sprintf("vehicle %s %s", a.Vehicle, where),
			Actual:   mismatch,
		}
	}
	return nil
}

// compareVehicle returns a description of the first mismatching field, or
// "" when every expected field matches.
func compareVehicle(v vehicle.State, exp *VehicleExpect) string {
	switch {
	case exp.Signal != nil && v.Signal != *exp.Signal:
		return fmt.Sprintf("signal = %q, want %q", v.Signal, *exp.Signal)
	case exp.SpeedFactor != nil && math.Abs(v.SpeedFactor-*exp.SpeedFactor) > speedFactorTolerance:
		return fmt.Sprintf("speed_factor = %g, want %g", v.SpeedFactor, *exp.SpeedFactor)
	case exp.Lane != nil && v.Lane != *exp.Lane:
		return fmt.Sprintf("lane = %d, want %d", v.Lane, *exp.Lane)
	case exp.LaneTarget != nil && v.LaneTarget != *exp.LaneTarget:
		return fmt.Sprintf("lane_target = %d, want %d", v.LaneTarget, *exp.LaneTarget)
	case exp.LaneChangeMode != nil && v.LaneChangeMode != *exp.LaneChangeMode:
		return fmt.Sprintf("lane_change_mode = %d, want %d", v.LaneChangeMode, *exp.LaneChangeMode)
	}
	return ""
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFiredCount:
			err = assertFiredCount(result, assertion)
		case AssertFiredAt:
			err = assertFiredAt(result, assertion)
		case AssertNeverFired:
			err = assertNeverFired(result, assertion)
		case AssertStoryState:
			err = assertStoryState(result, assertion)
		case AssertVehicleState:
			if assertion.Expect == nil {
				err = fmt.Errorf("assertion[%d]: vehicle_state requires expect", i)
			} else {
				err = assertVehicleState(result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
