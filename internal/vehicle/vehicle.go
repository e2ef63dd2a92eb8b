// Package vehicle defines the boundary between the storyboard and the
// simulation kernel that owns the vehicles.
//
// The engine only ever reads the population through Query and writes to it
// through Actuator. It never creates or removes vehicles. Population is an
// in-memory Kernel used by the traffic driver and by tests.
package vehicle

import (
	"errors"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// ErrDeparted is returned by an Actuator when the target vehicle has left
// the simulation. It is an expected condition, not a failure.
var ErrDeparted = errors.New("vehicle departed")

// Position is a vehicle's planar position at a tick.
type Position struct {
	ID string
	At ir.Coord
}

// Query is the read side of the kernel. Every returned id list is sorted
// ascending. Implementations answer for the population present at tick; an
// empty population yields empty results, never an error.
type Query interface {
	// Vehicles returns every present vehicle.
	Vehicles(tick timeline.Tick) []string
	// Match returns the present vehicles selected by ids.
	Match(tick timeline.Tick, ids ir.IdentifierSet) []string
	// Positions returns the position of every present vehicle, sorted by id.
	Positions(tick timeline.Tick) []Position
	// FasterThan returns the present vehicles whose speed exceeds threshold (m/s).
	FasterThan(tick timeline.Tick, threshold float64) []string
}

// Actuator is the write side of the kernel. Every call is an idempotent set.
// A call for a vehicle that is no longer present returns an error wrapping
// ErrDeparted.
type Actuator interface {
	SetSignal(id, kind string) error
	SetSpeedFactor(id string, factor float64) error
	ChangeLane(id string, lane int, duration timeline.Tick) error
	SetLaneChangeMode(id string, mask int) error
}

// Kernel is a full vehicle interface.
type Kernel interface {
	Query
	Actuator
}
