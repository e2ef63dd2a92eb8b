package ir

import (
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/roach88/storyboard/internal/timeline"
)

// ConditionKind tags a Condition variant.
type ConditionKind string

// Condition kinds. This set is closed.
const (
	KindTimeAtOrAfter ConditionKind = "time_at_or_after"
	KindTimeWindow    ConditionKind = "time_window"
	KindCarSet        ConditionKind = "car_set"
	KindPolygon       ConditionKind = "polygon"
	KindSpeedGreater  ConditionKind = "speed_greater"
	KindAnd           ConditionKind = "and"
	KindOr            ConditionKind = "or"
)

// Condition is a node of an immutable condition tree. The concrete types are
// TimeAtOrAfter, TimeWindow, CarSet, Polygon, SpeedGreater, And and Or.
type Condition interface {
	Kind() ConditionKind
	isCondition()
}

// TimeAtOrAfter holds from tick At onwards.
type TimeAtOrAfter struct {
	at timeline.Tick
}

// NewTimeAtOrAfter builds a condition that becomes true at tick at and stays true.
func NewTimeAtOrAfter(at timeline.Tick) (TimeAtOrAfter, error) {
	if at < 0 {
		return TimeAtOrAfter{}, configErrorf("time.from", "tick %d is negative", at)
	}
	return TimeAtOrAfter{at: at}, nil
}

func (c TimeAtOrAfter) At() timeline.Tick { return c.at }
func (TimeAtOrAfter) Kind() ConditionKind { return KindTimeAtOrAfter }
func (TimeAtOrAfter) isCondition() {}

// TimeWindow holds on the half-open interval [From, Until).
type TimeWindow struct {
	from  timeline.Tick
	until timeline.Tick
}

// NewTimeWindow builds a half-open time window. An empty or inverted window
// could never hold and is rejected.
func NewTimeWindow(from, until timeline.Tick) (TimeWindow, error) {
	if from < 0 {
		return TimeWindow{}, configErrorf("time.from", "tick %d is negative", from)
	}
	if until <= from {
		return TimeWindow{}, configErrorf("time.until", "window end %s is not after start %s", until, from)
	}
	return TimeWindow{from: from, until: until}, nil
}

func (c TimeWindow) From() timeline.Tick { return c.from }
func (c TimeWindow) Until() timeline.Tick { return c.until }
func (TimeWindow) Kind() ConditionKind { return KindTimeWindow }
func (TimeWindow) isCondition() {}

// CarSet holds while at least one present vehicle matches its identifiers.
type CarSet struct {
	ids IdentifierSet
}

// NewCarSet builds a membership condition over a non-empty identifier set.
func NewCarSet(ids IdentifierSet) (CarSet, error) {
	if ids.Empty() {
		return CarSet{}, configErrorf("cars", "identifier set is empty")
	}
	return CarSet{ids: ids}, nil
}

func (c CarSet) IDs() IdentifierSet { return c.ids }
func (CarSet) Kind() ConditionKind { return KindCarSet }
func (CarSet) isCondition() {}

// Polygon holds while at least one vehicle is inside the vertex ring.
type Polygon struct {
	vertices []Coord
}

// NewPolygon builds a spatial condition. The ring is implicitly closed and
// may be non-convex.
func NewPolygon(vertices []Coord) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, configErrorf("polygon", "need at least 3 vertices, got %d", len(vertices))
	}
	for i, v := range vertices {
		if !v.finite() {
			return Polygon{}, configErrorf("polygon", "vertex %d is not finite", i)
		}
	}
	return Polygon{vertices: slices.Clone(vertices)}, nil
}

// Vertices returns a copy of the vertex ring.
func (c Polygon) Vertices() []Coord { return slices.Clone(c.vertices) }

// Ring returns the vertices as a closed planar ring. It is nil for a zero
// Polygon.
func (c Polygon) Ring() orb.Ring {
	if len(c.vertices) == 0 {
		return nil
	}
	r := make(orb.Ring, 0, len(c.vertices)+1)
	for _, v := range c.vertices {
		r = append(r, orb.Point{v.X, v.Y})
	}
	if !r.Closed() {
		r = append(r, r[0])
	}
	return r
}
func (Polygon) Kind() ConditionKind { return KindPolygon }
func (Polygon) isCondition() {}

// SpeedGreater holds while at least one vehicle is faster than Threshold (m/s).
type SpeedGreater struct {
	threshold float64
}

// NewSpeedGreater builds a kinematic condition.
func NewSpeedGreater(threshold float64) (SpeedGreater, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return SpeedGreater{}, configErrorf("speedAbove", "threshold %v must be a finite, non-negative speed", threshold)
	}
	return SpeedGreater{threshold: threshold}, nil
}

func (c SpeedGreater) Threshold() float64 { return c.threshold }
func (SpeedGreater) Kind() ConditionKind { return KindSpeedGreater }
func (SpeedGreater) isCondition() {}

// And holds when both children hold. Evaluation short-circuits on Left.
type And struct {
	left, right Condition
}

// NewAnd combines two conditions.
func NewAnd(left, right Condition) (And, error) {
	if left == nil || right == nil {
		return And{}, configErrorf("and", "both operands are required")
	}
	return And{left: left, right: right}, nil
}

func (c And) Left() Condition { return c.left }
func (c And) Right() Condition { return c.right }
func (And) Kind() ConditionKind { return KindAnd }
func (And) isCondition() {}

// Or holds when either child holds. Evaluation short-circuits on Left.
type Or struct {
	left, right Condition
}

// NewOr combines two conditions.
func NewOr(left, right Condition) (Or, error) {
	if left == nil || right == nil {
		return Or{}, configErrorf("or", "both operands are required")
	}
	return Or{left: left, right: right}, nil
}

func (c Or) Left() Condition { return c.left }
func (c Or) Right() Condition { return c.right }
func (Or) Kind() ConditionKind { return KindOr }
func (Or) isCondition() {}

// Walk visits cond and its descendants in pre-order, left before right.
// A nil condition is not visited.
func Walk(cond Condition, fn func(Condition)) {
	if cond == nil {
		return
	}
	fn(cond)
	switch c := cond.(type) {
	case And:
		Walk(c.left, fn)
		Walk(c.right, fn)
	case Or:
		Walk(c.left, fn)
		Walk(c.right, fn)
	}
}

// VehicleLeaves returns the leaves of cond that refer to vehicles (CarSet,
// Polygon and SpeedGreater), in pre-order.
func VehicleLeaves(cond Condition) []Condition {
	var leaves []Condition
	Walk(cond, func(c Condition) {
		switch c.(type) {
		case CarSet, Polygon, SpeedGreater:
			leaves = append(leaves, c)
		}
	})
	return leaves
}
