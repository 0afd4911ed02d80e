package testutil

import (
	"time"

	"github.com/hupe1980/modepilot/core"
)

// ExampleBuilder provides a fluent helper for constructing examples in tests.
// Example:
//
//	ex := NewExampleBuilder().Summary("gripper above marker").Override("translate", "gripper").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ExampleBuilder struct {
	id        int64
	timestamp time.Time
	summary   string
	fields    map[string]string
	proposed  string
	corrected string
	runID     string
}

// NewExampleBuilder creates a builder with a confirmed "translate" decision.
func NewExampleBuilder() *ExampleBuilder {
	return &ExampleBuilder{proposed: "translate", corrected: "translate"}
}

// ID overrides the interaction id, which stores normally allocate (chainable).
func (b *ExampleBuilder) ID(id int64) *ExampleBuilder { b.id = id; return b }

// At sets the example timestamp (chainable).
func (b *ExampleBuilder) At(t time.Time) *ExampleBuilder { b.timestamp = t; return b }

// Summary sets the snapshot summary text (chainable).
func (b *ExampleBuilder) Summary(s string) *ExampleBuilder { b.summary = s; return b }

// Field sets one structured snapshot field (chainable).
func (b *ExampleBuilder) Field(key, value string) *ExampleBuilder {
	if b.fields == nil {
		b.fields = map[string]string{}
	}
	b.fields[key] = value
	return b
}

// Confirmed marks the example as an operator confirmation of mode (chainable).
func (b *ExampleBuilder) Confirmed(mode string) *ExampleBuilder {
	b.proposed = mode
	b.corrected = mode
	return b
}

// Override marks the example as an operator override from proposed to corrected (chainable).
func (b *ExampleBuilder) Override(proposed, corrected string) *ExampleBuilder {
	b.proposed = proposed
	b.corrected = corrected
	return b
}

// Run ties the example to a run id (chainable).
func (b *ExampleBuilder) Run(runID string) *ExampleBuilder { b.runID = runID; return b }

// Build constructs the core.Example value.
func (b *ExampleBuilder) Build() core.Example {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return core.Example{
		InteractionID: b.id,
		Timestamp:     ts,
		Snapshot:      core.Snapshot{Summary: b.summary, Fields: b.fields},
		ProposedMode:  b.proposed,
		CorrectedMode: b.corrected,
		RunID:         b.runID,
	}
}
