package engine

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
	"github.com/roach88/storyboard/internal/vehicle"
)

// ResolveTargets returns the vehicles a firing story acts on at tick, sorted
// and without duplicates.
//
// For matched targets this is the union of the current matches of every
// vehicle leaf in the story's condition, including leaves on an Or branch
// that did not decide the result.
func ResolveTargets(story ir.Story, tick timeline.Tick, q vehicle.Query) []string {
	var ids []string
	switch story.Targets.Mode {
	case ir.TargetsMatched:
		for _, leaf := range ir.VehicleLeaves(story.When) {
			ids = append(ids, LeafMatches(leaf, tick, q)...)
		}
	case ir.TargetsAll:
		ids = q.Vehicles(tick)
	case ir.TargetsNone:
		return nil
	case ir.TargetsSelect:
		ids = q.Match(tick, story.Targets.Select)
	default:
		panic(fmt.Sprintf("engine: unknown target mode %q", story.Targets.Mode))
	}
	ids = lo.Uniq(ids)
	slices.Sort(ids)
	return ids
}
