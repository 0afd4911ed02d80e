// Package learning implements the write side of ModePilot: recording
// operator outcomes as examples and distilling batches of them into reusable
// rules.
//
// The loop is incremental. Examples accumulate in the example store;
// once the pending count (example_index - interact_index) reaches the task's
// threshold, the contiguous pending slice is sent to the gateway and the
// returned drafts are appended to the rule store as rules carrying the batch
// provenance. Cursors are checkpointed through the tracker after every
// mutation, so a crash loses at most one uncommitted update.
//
// Failure semantics follow the cursor: a failed summarization never advances
// interact_index, so the failed batch simply merges with newer examples on
// the next pass. Rules are additive; a bad rule is corrected by appending a
// better one, never by rewriting history.
package learning
