// Package harness runs conformance scenarios against the storyboard engine.
//
// A scenario pairs a CUE story file with an inline traffic plan and a list of
// assertions about what the board did. The harness compiles the stories,
// drives a fresh board through the plan, records every firing to an
// in-memory store and checks the assertions against the recorded trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: evw_basic
//	description: "Emergency vehicle warning after ten seconds"
//	stories: ../stories/evw.cue
//	run_id: test-run-evw
//	traffic:
//	  step: 1s
//	  until: 14s
//	  vehicles:
//	    - id: ambulance.0
//	      enter: 5s
//	      track: [{ at: 0, x: 0, y: 0, speed: 20 }]
//	assertions:
//	  - type: fired_at
//	    story: evw
//	    ticks: [10s]
//	  - type: vehicle_state
//	    vehicle: ambulance.0
//	    expect: { signal: EVW }
//
// The stories path is relative to the scenario file.
//
// # Assertion Types
//
//   - fired_count: the story fired exactly count times
//   - fired_at: the story fired at exactly the listed ticks, in order
//   - never_fired: the story never fired
//   - vehicle_state: a vehicle's actuated attributes at tick at, or after the
//     last tick when at is omitted
//   - story_state: the story's firing state after the last tick
//
// # Deterministic Testing
//
// Every run uses a fixed run id (from run_id, or "test-run-default"), a fresh
// in-memory SQLite store and the plan's fixed tick sequence, so the recorded
// trace is byte-identical across runs and can be compared against a golden
// file stored next to the scenario in golden/<file>.golden.
package harness
