package vehicle

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// NoLaneChange is the LaneTarget of a vehicle with no maneuver in progress.
const NoLaneChange = -1

// DefaultLaneChangeMode is the mode a vehicle enters with: every maneuver
// permitted, nothing overridden.
const DefaultLaneChangeMode = 0b011001010101

// State is a snapshot of one vehicle.
type State struct {
	ID    string
	Tags  []string
	Lane  int
	At    ir.Coord
	Speed float64 // base speed from the kernel, m/s

	// Actuated attributes.
	Signal         string
	SpeedFactor    float64
	LaneTarget     int
	LaneChangeEnd  timeline.Tick
	LaneChangeMode int
}

// ReportedSpeed is the speed the vehicle actually drives at.
func (s State) ReportedSpeed() float64 {
	return s.Speed * s.SpeedFactor
}

// Population is an in-memory Kernel. The driver adds, moves and removes
// vehicles and advances its clock; the engine queries and actuates them.
//
// A Population is not safe for concurrent use.
type Population struct {
	now      timeline.Tick
	vehicles map[string]*State
}

// NewPopulation creates an empty population at tick 0.
func NewPopulation() *Population {
	return &Population{vehicles: make(map[string]*State)}
}

// Add inserts a vehicle. Adding a present id is an error.
func (p *Population) Add(id string, tags []string, lane int, at ir.Coord, speed float64) error {
	if id == "" {
		return fmt.Errorf("add vehicle: empty id")
	}
	if _, ok := p.vehicles[id]; ok {
		return fmt.Errorf("add vehicle %s: already present", id)
	}
	p.vehicles[id] = &State{
		ID:             id,
		Tags:           slices.Clone(tags),
		Lane:           lane,
		At:             at,
		Speed:          speed,
		SpeedFactor:    1,
		LaneTarget:     NoLaneChange,
		LaneChangeMode: DefaultLaneChangeMode,
	}
	return nil
}

// Remove takes a vehicle out of the simulation. Later actuations of it
// return ErrDeparted.
func (p *Population) Remove(id string) error {
	if _, ok := p.vehicles[id]; !ok {
		return fmt.Errorf("remove vehicle %s: %w", id, ErrDeparted)
	}
	delete(p.vehicles, id)
	return nil
}

// Move updates a vehicle's position and base speed.
func (p *Population) Move(id string, at ir.Coord, speed float64) error {
	v, err := p.lookup(id)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	v.At = at
	v.Speed = speed
	return nil
}

// Advance moves the population clock to tick and completes every lane change
// whose deadline has passed.
func (p *Population) Advance(tick timeline.Tick) {
	p.now = tick
	for _, v := range p.vehicles {
		if v.LaneTarget != NoLaneChange && tick >= v.LaneChangeEnd {
			v.Lane = v.LaneTarget
			v.LaneTarget = NoLaneChange
		}
	}
}

// Now returns the tick of the last Advance.
func (p *Population) Now() timeline.Tick {
	return p.now
}

// Get returns a snapshot of one vehicle.
func (p *Population) Get(id string) (State, bool) {
	v, ok := p.vehicles[id]
	if !ok {
		return State{}, false
	}
	return v.snapshot(), true
}

// Snapshot returns every present vehicle, sorted by id.
func (p *Population) Snapshot() []State {
	return lo.Map(p.ids(), func(id string, _ int) State {
		return p.vehicles[id].snapshot()
	})
}

// Len returns the number of present vehicles.
func (p *Population) Len() int {
	return len(p.vehicles)
}

// Vehicles implements Query.
func (p *Population) Vehicles(timeline.Tick) []string {
	return p.ids()
}

// Match implements Query.
func (p *Population) Match(_ timeline.Tick, ids ir.IdentifierSet) []string {
	return lo.Filter(p.ids(), func(id string, _ int) bool {
		return ids.Matches(id, p.vehicles[id].Tags)
	})
}

// Positions implements Query.
func (p *Population) Positions(timeline.Tick) []Position {
	return lo.Map(p.ids(), func(id string, _ int) Position {
		return Position{ID: id, At: p.vehicles[id].At}
	})
}

// FasterThan implements Query.
func (p *Population) FasterThan(_ timeline.Tick, threshold float64) []string {
	return lo.Filter(p.ids(), func(id string, _ int) bool {
		return p.vehicles[id].ReportedSpeed() > threshold
	})
}

// SetSignal implements Actuator.
func (p *Population) SetSignal(id, kind string) error {
	v, err := p.lookup(id)
	if err != nil {
		return fmt.Errorf("set signal: %w", err)
	}
	v.Signal = kind
	return nil
}

// SetSpeedFactor implements Actuator.
func (p *Population) SetSpeedFactor(id string, factor float64) error {
	v, err := p.lookup(id)
	if err != nil {
		return fmt.Errorf("set speed factor: %w", err)
	}
	v.SpeedFactor = factor
	return nil
}

// ChangeLane implements Actuator. Re-issuing restarts the maneuver from now.
func (p *Population) ChangeLane(id string, lane int, duration timeline.Tick) error {
	v, err := p.lookup(id)
	if err != nil {
		return fmt.Errorf("change lane: %w", err)
	}
	v.LaneTarget = lane
	v.LaneChangeEnd = p.now + duration
	return nil
}

// SetLaneChangeMode implements Actuator.
func (p *Population) SetLaneChangeMode(id string, mask int) error {
	v, err := p.lookup(id)
	if err != nil {
		return fmt.Errorf("set lane change mode: %w", err)
	}
	v.LaneChangeMode = mask
	return nil
}

func (p *Population) lookup(id string) (*State, error) {
	v, ok := p.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrDeparted)
	}
	return v, nil
}

func (p *Population) ids() []string {
	ids := lo.Keys(p.vehicles)
	slices.Sort(ids)
	return ids
}

func (s *State) snapshot() State {
	out := *s
	out.Tags = slices.Clone(s.Tags)
	return out
}

var _ Kernel = (*Population)(nil)
