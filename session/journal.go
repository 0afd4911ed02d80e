package session

import (
	"sync"
	"time"
)

// Initiators for journal records.
const (
	InitiatorAuto     = "auto"
	InitiatorOperator = "operator"
)

// SwitchRecord is one journal entry: a mode engaged at a point in time, by
// the engine or by the operator. From equals To when a decision kept the
// mode already engaged.
type SwitchRecord struct {
	Time      time.Time `json:"time"`
	Initiator string    `json:"initiator"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Rationale string    `json:"rationale,omitempty"`
}

// IsSwitch reports whether the record actually changed the engaged mode.
func (r SwitchRecord) IsSwitch() bool { return r.From != r.To }

// RunSummary is the closing report for one run.
type RunSummary struct {
	RunID            string         `json:"run_id"`
	TaskID           string         `json:"task_id"`
	Started          time.Time      `json:"started"`
	Duration         time.Duration  `json:"duration"`
	Switches         []SwitchRecord `json:"switches,omitempty"`
	AutoSwitches     int            `json:"auto_switches"`
	OperatorSwitches int            `json:"operator_switches"`
	Decisions        int            `json:"decisions"`
	GatewayFailures  int            `json:"gateway_failures"`
}

// Journal is the append-only record of mode changes within one run, plus
// counters for decision cycles and gateway failures. It is safe for
// concurrent access and transient: callers that want the closing report
// durably must persist Summary themselves.
type Journal struct {
	mu        sync.RWMutex
	records   []SwitchRecord
	decisions int
	failures  int
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an entry. A zero Time is replaced with the current UTC time.
func (j *Journal) Record(rec SwitchRecord) {
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
}

// NoteDecision counts one completed decision cycle.
func (j *Journal) NoteDecision() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.decisions++
}

// NoteFailure counts one failed gateway call.
func (j *Journal) NoteFailure() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.failures++
}

// Records returns a defensive copy of all entries in order.
func (j *Journal) Records() []SwitchRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]SwitchRecord, len(j.records))
	copy(out, j.records)

	return out
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.records)
}

// Summary assembles the closing report for the run. Only records that
// actually changed the mode count as switches; a decision that kept the
// engaged mode is journaled but not a switch.
func (j *Journal) Summary(runID, taskID string, started time.Time) RunSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()

	summary := RunSummary{
		RunID:           runID,
		TaskID:          taskID,
		Started:         started,
		Duration:        time.Since(started),
		Decisions:       j.decisions,
		GatewayFailures: j.failures,
	}

	for _, rec := range j.records {
		if !rec.IsSwitch() {
			continue
		}
		summary.Switches = append(summary.Switches, rec)
		switch rec.Initiator {
		case InitiatorAuto:
			summary.AutoSwitches++
		case InitiatorOperator:
			summary.OperatorSwitches++
		}
	}

	return summary
}
