package engine

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/roach88/storyboard/internal/ir"
)

// pointInPolygon reports whether p is inside the closed ring under the
// even-odd rule. Points on an edge or vertex count as inside. Rings with
// fewer than three distinct vertices contain nothing.
func pointInPolygon(p ir.Coord, ring orb.Ring) bool {
	if len(ring) < 4 {
		return false
	}
	return planar.RingContains(ring, orb.Point{p.X, p.Y})
}
