// Package engine implements the storyboard: condition evaluation, target
// resolution, effect application and the per-story firing state machine,
// driven tick by tick by a Board.
//
// ARCHITECTURE:
//
// The kernel owns time and vehicles. Once per simulation step it calls
// Board.Step(tick). The board then, for each registered story in
// registration order:
//  1. evaluates the story's condition tree against the kernel's Query side
//  2. feeds the value into the story's state machine (armed, fired, done)
//  3. on a firing, resolves the target vehicles, applies every effect through
//     the kernel's Actuator side, and notifies observers
//
// Nothing here performs I/O or blocks. Persistence and publishing hang off
// the FiringObserver hook.
//
// CRITICAL PATTERNS:
//
// Deterministic ordering: stories in registration order, vehicles in sorted
// id order, effects in declaration order, firings stamped from a logical
// Clock. No randomness, no concurrency, no wall-clock time.
//
// Departed vehicles: a vehicle can leave between the query and the
// actuation. That is recorded as OutcomeDeparted and a warning, never a
// failure of the story.
package engine
