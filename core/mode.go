package core

import "github.com/google/uuid"

// ModeSpec describes one entry of a task's mode catalogue: a named mapping
// from input-device motion to a subset of robot degrees of freedom, plus the
// natural-language description shown to the model when it picks among modes.
type ModeSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModeDecision is the engine's output for one decision cycle. Mode is always
// one of the task's declared mode names; callers never receive a label
// outside the catalogue. Rationale carries the model's short justification
// for logging and operator display.
type ModeDecision struct {
	Mode      string `json:"mode"`
	Rationale string `json:"rationale"`
}

// NewID generates a new unique identifier for runs and rules.
func NewID() string { return uuid.NewString() }
