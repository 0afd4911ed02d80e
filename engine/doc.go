// Package engine implements the mode decision cycle for ModePilot.
//
// The Engine is the read side of the system: given a task context and a live
// snapshot it assembles the decision prompt from the active rules and a
// trailing window of recent examples, calls the gateway, and validates the
// returned label against the task's closed mode catalogue. It never writes
// to any store; recording outcomes and distilling rules belong to the
// learning package.
//
// # Decision Cycle
//
//  1. Validate the task context.
//  2. Render the task description template against the live snapshot.
//  3. Pull active rules (newest first, bounded) and recent examples
//     (most recent first, bounded). Task-level bounds win over Config.
//  4. Call the gateway, bounded by DecisionTimeout.
//  5. Trim and validate the returned mode label.
//
// # Error Surface
//
// A gateway failure or timeout wraps core.ErrDecisionUnavailable: the engine
// never guesses a mode, and the caller decides whether to retry or drop to
// manual control. A label outside the catalogue wraps
// core.ErrInvalidModeResponse and is never auto-corrected. Store corruption
// passes through loudly.
//
// The decision cycle is synchronous and blocking. The robot-facing caller
// must not act on stale or partial data, so there is no fire-and-forget
// path.
package engine
