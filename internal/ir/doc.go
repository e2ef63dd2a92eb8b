// Package ir provides the intermediate representation for storyboard scenarios.
//
// The representation is a closed set of tagged variants: seven condition
// kinds, four effect kinds, and the Story that binds one condition tree to an
// ordered effect list. Constructors validate their arguments and return a
// *ConfigError on malformed input, so a value that exists is well formed.
//
// Key design constraints:
//   - Condition and Effect are sealed interfaces; new kinds are added here,
//     never by implementing the interface elsewhere
//   - Values are immutable after construction (fields are unexported)
//   - Vehicle identifier sets are explicit values, never inferred from strings
//   - Time is expressed in timeline.Tick, never wall-clock time
//
// This package imports nothing internal except timeline; every other internal
// package imports ir.
package ir
