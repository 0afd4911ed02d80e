// Package core provides the foundational domain types and contracts used by
// ModePilot. It defines the core abstractions for:
//
//   - Control modes (the closed catalogue of joystick-to-DOF mappings) and
//     mode decisions returned to the robot-facing caller
//   - Examples (operator-corrected decision records) and Rules (decision
//     heuristics distilled from batches of examples)
//   - Task contexts (per-task configuration plus the two resumption cursors)
//   - Pluggable stores for examples and rules, and the tracker that persists
//     cursor checkpoints
//   - The error taxonomy separating recoverable gateway failures from data
//     integrity failures
//
// The package intentionally keeps implementation concerns (persistence,
// prompt assembly, provider transports) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
