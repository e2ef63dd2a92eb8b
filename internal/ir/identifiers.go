package ir

import (
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// IdentifierSet is a normalized set of vehicle identifiers. Each entry is a
// vehicle id ("ambulance.0"), a group tag ("evw_veh") or a flow name ("flow0").
//
// The zero value is an empty set.
type IdentifierSet struct {
	ids []string // sorted, unique
}

// NewIdentifierSet validates and normalizes ids. Duplicates collapse; empty or
// whitespace-only identifiers are rejected.
func NewIdentifierSet(ids ...string) (IdentifierSet, error) {
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return IdentifierSet{}, configErrorf("identifier_set", "identifier %d is empty", i)
		}
		if id != strings.TrimSpace(id) {
			return IdentifierSet{}, configErrorf("identifier_set", "identifier %q has surrounding whitespace", id)
		}
	}
	uniq := lo.Uniq(ids)
	slices.Sort(uniq)
	return IdentifierSet{ids: uniq}, nil
}

// MustIdentifierSet is like NewIdentifierSet but panics on error.
// Use only in tests or with literal identifiers.
func MustIdentifierSet(ids ...string) IdentifierSet {
	s, err := NewIdentifierSet(ids...)
	if err != nil {
		panic(err)
	}
	return s
}

// IDs returns a copy of the identifiers in sorted order.
func (s IdentifierSet) IDs() []string {
	return slices.Clone(s.ids)
}

// Len returns the number of identifiers.
func (s IdentifierSet) Len() int {
	return len(s.ids)
}

// Empty reports whether the set has no identifiers.
func (s IdentifierSet) Empty() bool {
	return len(s.ids) == 0
}

// Matches reports whether a vehicle with the given id and group tags is
// selected by any identifier in the set: exact id, group tag, or flow prefix
// (identifier "flow0" selects vehicle "flow0.3").
func (s IdentifierSet) Matches(vehicleID string, tags []string) bool {
	for _, ident := range s.ids {
		if ident == vehicleID {
			return true
		}
		if slices.Contains(tags, ident) {
			return true
		}
		if strings.HasPrefix(vehicleID, ident+".") {
			return true
		}
	}
	return false
}

// Coord is a planar position in simulation coordinates (metres).
type Coord struct {
	X float64
	Y float64
}

func (c Coord) finite() bool {
	return !math.IsNaN(c.X) && !math.IsInf(c.X, 0) && !math.IsNaN(c.Y) && !math.IsInf(c.Y, 0)
}
