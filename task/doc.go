// Package task contains concrete implementations of the core.Tracker.
//
// The canonical Tracker interface lives in the core package to keep domain
// contracts central. Implementations here own loading a task context and
// checkpointing its cursors: FileTracker persists to the task's JSON file on
// disk, MemoryTracker holds the context in process for tests and ephemeral
// runs.
//
// Cursor commits are idempotent and monotonic. Committing the cursors a file
// already holds rewrites nothing, and a commit never moves a cursor backward,
// so replaying a checkpoint after a crash is always safe.
package task
