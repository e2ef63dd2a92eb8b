package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/vehicle"
)

// VehicleSpec describes one vehicle to seed a test population with.
type VehicleSpec struct {
	ID    string
	Tags  []string
	Lane  int
	X, Y  float64
	Speed float64
}

// Car returns a stationary vehicle at the origin.
func Car(id string, tags ...string) VehicleSpec {
	return VehicleSpec{ID: id, Tags: tags}
}

// At places the vehicle at (x, y).
func (v VehicleSpec) At(x, y float64) VehicleSpec {
	v.X, v.Y = x, y
	return v
}

// Driving sets the vehicle's base speed in m/s.
func (v VehicleSpec) Driving(speed float64) VehicleSpec {
	v.Speed = speed
	return v
}

// InLane sets the vehicle's lane.
func (v VehicleSpec) InLane(lane int) VehicleSpec {
	v.Lane = lane
	return v
}

// NewPopulation builds an in-memory population from specs, failing the test
// on a duplicate id.
func NewPopulation(t testing.TB, specs ...VehicleSpec) *vehicle.Population {
	t.Helper()
	p := vehicle.NewPopulation()
	for _, s := range specs {
		require.NoError(t, p.Add(s.ID, s.Tags, s.Lane, ir.Coord{X: s.X, Y: s.Y}, s.Speed))
	}
	return p
}
