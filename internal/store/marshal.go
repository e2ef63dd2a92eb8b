package store

import (
	"fmt"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// Run is the header row of a recorded run.
type Run struct {
	ID            string        `json:"id"`
	ScenarioName  string        `json:"scenario_name"`
	ScenarioHash  string        `json:"scenario_hash"`
	Scenario      string        `json:"scenario"` // canonical JSON
	Step          timeline.Tick `json:"step"`
	Until         timeline.Tick `json:"until"`
	EngineVersion string        `json:"engine_version"`
	IRVersion     string        `json:"ir_version"`
}

// NewRun builds the header for a run of sc driven every step ticks up to
// until. The scenario is stored as canonical JSON so a later replay can check
// it is running the same scenario.
func NewRun(id string, sc ir.Scenario, step, until timeline.Tick) (Run, error) {
	doc, err := marshalScenario(sc)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	hash, err := ir.ScenarioHash(sc)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		ID:            id,
		ScenarioName:  sc.Name,
		ScenarioHash:  hash,
		Scenario:      doc,
		Step:          step,
		Until:         until,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}

// marshalScenario converts a scenario to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalScenario(sc ir.Scenario) (string, error) {
	data, err := ir.MarshalCanonical(ir.DescribeScenario(sc))
	if err != nil {
		return "", fmt.Errorf("marshal scenario: %w", err)
	}
	return string(data), nil
}
