package engine

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// Evaluate reports whether cond holds at tick against the population seen
// through q.
//
// Evaluation is pure: it reads q and never actuates. And and Or
// short-circuit left to right, so the right child is not queried when the
// left decides. An empty population makes every vehicle leaf false. A nil
// condition is false.
func Evaluate(cond ir.Condition, tick timeline.Tick, q vehicle.Query) bool {
	switch c := cond.(type) {
	case nil:
		return false
	case ir.TimeAtOrAfter:
		return tick >= c.At()
	case ir.TimeWindow:
		return c.From() <= tick && tick < c.Until()
	case ir.CarSet:
		return len(q.Match(tick, c.IDs())) > 0
	case ir.Polygon:
		ring := c.Ring()
		return slices.ContainsFunc(q.Positions(tick), func(p vehicle.Position) bool {
			return pointInPolygon(p.At, ring)
		})
	case ir.SpeedGreater:
		return len(q.FasterThan(tick, c.Threshold())) > 0
	case ir.And:
		return Evaluate(c.Left(), tick, q) && Evaluate(c.Right(), tick, q)
	case ir.Or:
		return Evaluate(c.Left(), tick, q) || Evaluate(c.Right(), tick, q)
	default:
		panic(fmt.Sprintf("engine: unknown condition %T", cond))
	}
}

// LeafMatches returns the vehicles a vehicle leaf currently selects, sorted.
// Time leaves and combinators select nobody.
func LeafMatches(leaf ir.Condition, tick timeline.Tick, q vehicle.Query) []string {
	switch c := leaf.(type) {
	case ir.CarSet:
		return q.Match(tick, c.IDs())
	case ir.Polygon:
		ring := c.Ring()
		inside := lo.Filter(q.Positions(tick), func(p vehicle.Position, _ int) bool {
			return pointInPolygon(p.At, ring)
		})
		return lo.Map(inside, func(p vehicle.Position, _ int) string { return p.ID })
	case ir.SpeedGreater:
		return q.FasterThan(tick, c.Threshold())
	default:
		return nil
	}
}
