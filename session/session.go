package session

import (
	"sync"
	"time"

	"github.com/hupe1980/modepilot/core"
)

// State is the mutable in-flight state of one run. It is safe for concurrent
// access.
//
// Contract:
//   - mutations update the Updated timestamp
//   - accessors return defensive copies, so callers can never corrupt state
//   - the zero mode ("") means no decision has engaged a mode yet
type State struct {
	runID   string
	taskID  string
	started time.Time

	mu              sync.RWMutex
	currentMode     string
	lastDecision    *core.ModeDecision
	lastSnapshot    core.Snapshot
	overridePending bool
	updated         time.Time
}

// NewState creates run state for the given task. An empty runID is replaced
// with a fresh id.
func NewState(runID, taskID string) *State {
	if runID == "" {
		runID = core.NewID()
	}
	now := time.Now().UTC()

	return &State{
		runID:   runID,
		taskID:  taskID,
		started: now,
		updated: now,
	}
}

// RunID returns the run identifier.
func (s *State) RunID() string { return s.runID }

// TaskID returns the task this run executes.
func (s *State) TaskID() string { return s.taskID }

// StartedAt returns when the run state was created.
func (s *State) StartedAt() time.Time { return s.started }

// ApplyDecision records an automatic decision: the engaged mode, the decision
// itself, and the snapshot it was made against.
func (s *State) ApplyDecision(d core.ModeDecision, snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := d
	s.currentMode = d.Mode
	s.lastDecision = &decision
	s.lastSnapshot = snap.Clone()
	s.overridePending = false
	s.updated = time.Now().UTC()
}

// BeginOverride marks that the operator has taken manual control and a
// corrected mode is on its way. The flag is observational: it lets a UI or
// supervisor pause automatic decisions until the switch resolves.
func (s *State) BeginOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overridePending = true
	s.updated = time.Now().UTC()
}

// OverridePending reports whether an operator override has begun but not yet
// resolved into a mode.
func (s *State) OverridePending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.overridePending
}

// SetMode engages a mode directly, as an operator override does, and
// resolves any pending override. The last decision and snapshot are left in
// place; they describe what the engine proposed before the switch.
func (s *State) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentMode = mode
	s.overridePending = false
	s.updated = time.Now().UTC()
}

// CurrentMode returns the mode currently engaged, or "" before the first
// decision.
func (s *State) CurrentMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentMode
}

// LastDecision returns the most recent automatic decision, if any.
func (s *State) LastDecision() (core.ModeDecision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastDecision == nil {
		return core.ModeDecision{}, false
	}

	return *s.lastDecision, true
}

// LastSnapshot returns a copy of the snapshot behind the most recent
// automatic decision.
func (s *State) LastSnapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSnapshot.Clone()
}

// UpdatedAt returns when the state last changed.
func (s *State) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updated
}
