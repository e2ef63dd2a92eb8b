// Package traffic drives a vehicle population through a scripted plan and
// steps a board once per tick.
//
// A plan is a YAML document listing vehicles, when they enter and leave the
// simulation, and keyframes of their position and speed. It stands in for a
// live microscopic traffic simulator: the same board runs against either.
package traffic

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storyboard/internal/timeline"
)

// Time is a tick in a plan. It is written as a duration string ("100ms",
// "5s") or a number of seconds.
type Time timeline.Tick

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Time) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time must be a duration or a number of seconds", n.Line)
	}
	if tag := n.ShortTag(); tag == "!!int" || tag == "!!float" {
		secs, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		tick, err := timeline.ParseSeconds(secs)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*t = Time(tick)
		return nil
	}
	tick, err := timeline.ParseTick(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*t = Time(tick)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Time) MarshalYAML() (any, error) {
	return t.Tick().String(), nil
}

// Tick returns t as a timeline tick.
func (t Time) Tick() timeline.Tick { return timeline.Tick(t) }

// Plan is a scripted traffic run.
type Plan struct {
	// Step is the tick interval. Required.
	Step Time `yaml:"step"`

	// Until is the last tick driven, inclusive.
	Until Time `yaml:"until"`

	// Vehicles lists every vehicle that appears during the run.
	Vehicles []VehicleSpec `yaml:"vehicles"`
}

// VehicleSpec scripts one vehicle.
type VehicleSpec struct {
	ID    string   `yaml:"id"`
	Tags  []string `yaml:"tags,omitempty"`
	Enter Time     `yaml:"enter"`

	// Leave is the first tick at which the vehicle is gone. Nil means it
	// stays until the end of the run.
	Leave *Time `yaml:"leave,omitempty"`

	Lane int `yaml:"lane"`

	// Track holds keyframes in increasing tick order. The latest keyframe at
	// or before the current tick applies; before the first keyframe the
	// first one applies.
	Track []Keyframe `yaml:"track"`
}

// Keyframe is a vehicle's position and base speed from At onwards.
type Keyframe struct {
	At    Time    `yaml:"at"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Speed float64 `yaml:"speed"`
}

// Present reports whether the vehicle is in the simulation at tick.
func (v VehicleSpec) Present(tick timeline.Tick) bool {
	if tick < v.Enter.Tick() {
		return false
	}
	return v.Leave == nil || tick < v.Leave.Tick()
}

// KeyframeAt returns the keyframe in effect at tick.
func (v VehicleSpec) KeyframeAt(tick timeline.Tick) Keyframe {
	k := v.Track[0]
	for _, f := range v.Track[1:] {
		if f.At.Tick() > tick {
			break
		}
		k = f
	}
	return k
}

// MaxTicks bounds the number of ticks a plan may drive.
const MaxTicks = 10_000_000

// Ticks returns every tick the plan drives: 0, Step, 2*Step, ... up to and
// including Until. The plan must be valid.
func (p *Plan) Ticks() []timeline.Tick {
	step := p.Step.Tick()
	n := int64(p.Until.Tick()/step) + 1
	ticks := make([]timeline.Tick, 0, min(n, MaxTicks))
	for i := range n {
		ticks = append(ticks, timeline.Tick(i)*step)
	}
	return ticks
}

// Parse decodes and validates a plan. Unknown fields are rejected.
func Parse(r io.Reader) (*Plan, error) {
	var plan Plan
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse traffic plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid traffic plan: %w", err)
	}
	return &plan, nil
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read traffic plan: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks the plan for missing or inconsistent fields.
func (p *Plan) Validate() error {
	if p.Step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	if p.Until < 0 {
		return fmt.Errorf("until must not be negative")
	}
	if n := int64(p.Until/p.Step) + 1; n > MaxTicks {
		return fmt.Errorf("plan drives %d ticks, more than the limit of %d", n, MaxTicks)
	}

	seen := make(map[string]bool, len(p.Vehicles))
	for i, v := range p.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicles[%d]: id is required", i)
		}
		if seen[v.ID] {
			return fmt.Errorf("vehicles[%d]: duplicate id %q", i, v.ID)
		}
		seen[v.ID] = true

		if v.Enter < 0 {
			return fmt.Errorf("vehicles[%d]: enter must not be negative", i)
		}
		if v.Leave != nil && *v.Leave <= v.Enter {
			return fmt.Errorf("vehicles[%d]: leave must be after enter", i)
		}
		if v.Lane < 0 {
			return fmt.Errorf("vehicles[%d]: lane must not be negative", i)
		}
		if len(v.Track) == 0 {
			return fmt.Errorf("vehicles[%d]: track needs at least one keyframe", i)
		}
		for j, k := range v.Track {
			if j > 0 && k.At <= v.Track[j-1].At {
				return fmt.Errorf("vehicles[%d].track[%d]: keyframes must be in increasing order", i, j)
			}
			if !finite(k.X) || !finite(k.Y) {
				return fmt.Errorf("vehicles[%d].track[%d]: position must be finite", i, j)
			}
			if !finite(k.Speed) || k.Speed < 0 {
				return fmt.Errorf("vehicles[%d].track[%d]: speed must be finite and non-negative", i, j)
			}
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
