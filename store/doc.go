// Package store provides the persistence layer for ModePilot's learning
// state: the append-only example log and the append-only rule log.
//
// Two families of implementations are included:
//
//   - ExampleLog / RuleLog persist one JSON record per line (JSONL) so logs
//     stay inspectable with standard text tools. Appends are guarded by an
//     advisory file lock plus an in-process mutex, and records are flushed
//     with fsync before a write is reported durable.
//   - InMemoryExampleStore / InMemoryRuleStore keep everything in process
//     for tests, examples and throwaway runs.
//
// Records are never edited or deleted. Rule budgeting is presentation-time
// eviction (Active), not removal, and a malformed record fails the read
// loudly with core.ErrStoreCorruption rather than being skipped.
package store
