package core

import "time"

// Example records one instance where the engine's automatic mode choice was
// confirmed or overridden by the operator. Examples are append-only: once
// written a record is never edited or deleted; correcting a mistaken example
// means appending a new record, never mutating history.
//
// InteractionID is allocated by the example store on append and is strictly
// greater than every previously persisted id (dense 1..N). RunID ties the
// record to the teleoperation run that produced it.
type Example struct {
	InteractionID int64     `json:"interaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	Snapshot      Snapshot  `json:"context_snapshot"`
	ProposedMode  string    `json:"proposed_mode"`
	CorrectedMode string    `json:"corrected_mode"`
	RunID         string    `json:"run_id,omitempty"`
}

// IsOverride reports whether the operator replaced the proposed mode rather
// than confirming it.
func (e Example) IsOverride() bool { return e.ProposedMode != e.CorrectedMode }
