package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createMemoryStore creates an in-memory store for testing.
func createMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testScenario returns a one-story scenario.
func testScenario(t *testing.T) ir.Scenario {
	t.Helper()
	cars, err := ir.NewCarSet(ir.MustIdentifierSet("ambulance.0"))
	if err != nil {
		t.Fatal(err)
	}
	sig, err := ir.NewSignal(ir.SignalEVW, ir.DefaultSignals())
	if err != nil {
		t.Fatal(err)
	}
	story, err := ir.NewStory(cars, []ir.Effect{sig}, ir.WithName("evw"))
	if err != nil {
		t.Fatal(err)
	}
	return ir.Scenario{Name: "demo", Stories: []ir.Story{story}}
}

// writeTestRun writes a run header for the test scenario.
func writeTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := NewRun(id, testScenario(t), 100, 10_000)
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestFiring creates a firing with one applied actuation per vehicle.
func createTestFiring(runID string, seq int64, tick timeline.Tick, story string, vehicles ...string) engine.Firing {
	f := engine.Firing{
		Seq:        seq,
		RunID:      runID,
		Tick:       tick,
		StoryID:    story,
		Policy:     ir.PolicySingleShot,
		Actuations: []engine.Actuation{},
	}
	for _, v := range vehicles {
		f.Actuations = append(f.Actuations, engine.Actuation{
			Vehicle: v,
			Effect:  ir.EffectSignal,
			Value:   ir.SignalEVW,
			Outcome: engine.OutcomeApplied,
		})
	}
	return f
}
