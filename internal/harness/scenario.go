package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/traffic"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Stories is the path of the CUE story file or package directory.
	// Relative paths are resolved against the scenario file's directory.
	Stories string `yaml:"stories"`

	// RunID is the fixed run id for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Traffic is the plan the board is driven through.
	Traffic traffic.Plan `yaml:"traffic"`

	// Assertions validate the recorded trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the trace, a story's state or a vehicle's state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Story is the story id (all types except vehicle_state).
	Story string `yaml:"story,omitempty"`

	// Count is the expected number of firings (fired_count).
	Count int `yaml:"count,omitempty"`

	// Ticks are the expected firing ticks, in order (fired_at).
	Ticks []traffic.Time `yaml:"ticks,omitempty"`

	// Vehicle is the vehicle id (vehicle_state).
	Vehicle string `yaml:"vehicle,omitempty"`

	// At is the tick to inspect (vehicle_state). Nil means after the last
	// tick.
	At *traffic.Time `yaml:"at,omitempty"`

	// Expect lists the expected vehicle attributes (vehicle_state).
	// Subset match: only the fields given are checked.
	Expect *VehicleExpect `yaml:"expect,omitempty"`

	// State is the expected story state (story_state).
	State string `yaml:"state,omitempty"`
}

// VehicleExpect is the subset of vehicle attributes a vehicle_state
// assertion checks.
type VehicleExpect struct {
	Present        *bool    `yaml:"present,omitempty"`
	Signal         *string  `yaml:"signal,omitempty"`
	SpeedFactor    *float64 `yaml:"speed_factor,omitempty"`
	Lane           *int     `yaml:"lane,omitempty"`
	LaneTarget     *int     `yaml:"lane_target,omitempty"`
	LaneChangeMode *int     `yaml:"lane_change_mode,omitempty"`
}

func (e *VehicleExpect) empty() bool {
	return e.Present == nil && e.Signal == nil && e.SpeedFactor == nil &&
		e.Lane == nil && e.LaneTarget == nil && e.LaneChangeMode == nil
}

// Assertion type constants.
const (
	AssertFiredCount   = "fired_count"
	AssertFiredAt      = "fired_at"
	AssertNeverFired   = "never_fired"
	AssertVehicleState = "vehicle_state"
	AssertStoryState   = "story_state"
)

var storyStates = []string{
	string(engine.StateArmed),
	string(engine.StateFired),
	string(engine.StateDone),
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses a scenario, resolving its stories path against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Stories != "" && !filepath.IsAbs(scenario.Stories) && baseDir != "" {
		scenario.Stories = filepath.Join(baseDir, scenario.Stories)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Stories == "" {
		return fmt.Errorf("stories is required")
	}
	if _, err := os.Stat(s.Stories); os.IsNotExist(err) {
		return &StoriesNotFoundError{Scenario: s.Name, ResolvedPath: s.Stories}
	}

	if err := s.Traffic.Validate(); err != nil {
		return fmt.Errorf("traffic: %w", err)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Type != AssertVehicleState && a.Story == "" {
		return fmt.Errorf("assertions[%d]: story is required for %s", index, a.Type)
	}

	switch a.Type {
	case AssertFiredCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fired_count", index)
		}
	case AssertFiredAt:
		if len(a.Ticks) == 0 {
			return fmt.Errorf("assertions[%d]: ticks list is required for fired_at", index)
		}
	case AssertNeverFired:
	case AssertVehicleState:
		if a.Vehicle == "" {
			return fmt.Errorf("assertions[%d]: vehicle is required for vehicle_state", index)
		}
		if a.Expect == nil || a.Expect.empty() {
			return fmt.Errorf("assertions[%d]: expect is required for vehicle_state", index)
		}
	case AssertStoryState:
		if !slices.Contains(storyStates, a.State) {
			return fmt.Errorf("assertions[%d]: state must be one of %v for story_state", index, storyStates)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// StoriesNotFoundError is returned when a scenario's stories path does not
// exist.
type StoriesNotFoundError struct {
	Scenario     string
	ResolvedPath string
}

// Error implements the error interface.
func (e *StoriesNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q references stories %q which do not exist", e.Scenario, e.ResolvedPath)
}
