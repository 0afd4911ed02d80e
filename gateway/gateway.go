package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/modepilot/core"
)

// DecideRequest captures the normalized input for one mode decision. The
// engine assembles it from the task context, the stores and the live
// snapshot; providers only render it into a prompt.
type DecideRequest struct {
	TaskID      string          `json:"task_id"`
	Description string          `json:"description"`
	Modes       []core.ModeSpec `json:"modes"`
	Rules       []core.Rule     `json:"rules,omitempty"`    // newest first
	Examples    []core.Example  `json:"examples,omitempty"` // most recent first
	Live        core.Snapshot   `json:"live"`
}

// AllowedModes returns the catalogue names in declaration order.
func (r *DecideRequest) AllowedModes() []string {
	names := make([]string, len(r.Modes))
	for i, m := range r.Modes {
		names[i] = m.Name
	}
	return names
}

// SummarizeRequest captures the normalized input for one summarization pass
// over a contiguous batch of examples.
type SummarizeRequest struct {
	TaskID      string          `json:"task_id"`
	Description string          `json:"description"`
	Modes       []core.ModeSpec `json:"modes"`
	Examples    []core.Example  `json:"examples"`           // batch in append order, oldest first
	Existing    []core.Rule     `json:"existing,omitempty"` // already distilled rules, newest first
}

// Decision is the raw provider output for one decision call. Mode is the
// label as produced by the model; catalogue validation happens in the engine,
// never here.
type Decision struct {
	Mode      string `json:"mode" description:"One of the allowed mode names, verbatim"`
	Rationale string `json:"rationale" description:"Brief justification for the chosen mode"`
}

// RuleDraft is one distilled heuristic produced by a summarization call,
// before the learning loop assigns ids and provenance.
type RuleDraft struct {
	Text string `json:"rule_text" description:"One general, reusable decision heuristic"`
}

// draftEnvelope is the JSON document shape providers are asked to emit for
// summarization replies.
type draftEnvelope struct {
	Rules []RuleDraft `json:"rules"`
}

// Info contains metadata about a gateway implementation.
type Info struct {
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
	Model    string `json:"model"`
}

// Gateway is the minimal interface the engine and learning loop require to
// drive a model provider. Implementations must honor context cancellation on
// both calls.
type Gateway interface {
	// DecideMode asks the provider to pick a mode for the live snapshot.
	DecideMode(ctx context.Context, req DecideRequest) (*Decision, error)

	// SummarizeExamples asks the provider to distill the batch into rule
	// drafts. An empty draft list is a valid provider answer; the learning
	// loop decides whether that counts as failure.
	SummarizeExamples(ctx context.Context, req SummarizeRequest) ([]RuleDraft, error)

	// Info returns information about the gateway implementation.
	Info() Info
}

// MockGateway is a lightweight in‑memory Gateway useful for tests & examples.
// Queued decisions and draft batches are consumed in FIFO order; once a queue
// is empty the mock falls back to a deterministic default. All requests are
// recorded for inspection.
type MockGateway struct {
	mu sync.Mutex

	info Info

	decisions  []queuedDecision
	summaries  []queuedSummary
	decideReqs []DecideRequest
	sumReqs    []SummarizeRequest
}

type queuedDecision struct {
	decision *Decision
	err      error
}

type queuedSummary struct {
	drafts []RuleDraft
	err    error
}

// NewMockGateway constructs a MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		info: Info{Provider: "mock", Model: "mock"},
	}
}

// AddDecision queues a deterministic decision for the next DecideMode call.
func (m *MockGateway) AddDecision(mode, rationale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, queuedDecision{decision: &Decision{Mode: mode, Rationale: rationale}})
}

// AddDecisionError queues a failure for the next DecideMode call.
func (m *MockGateway) AddDecisionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, queuedDecision{err: err})
}

// AddDrafts queues a draft batch for the next SummarizeExamples call.
func (m *MockGateway) AddDrafts(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drafts := make([]RuleDraft, len(texts))
	for i, t := range texts {
		drafts[i] = RuleDraft{Text: t}
	}
	m.summaries = append(m.summaries, queuedSummary{drafts: drafts})
}

// AddSummarizeError queues a failure for the next SummarizeExamples call.
func (m *MockGateway) AddSummarizeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, queuedSummary{err: err})
}

// DecideMode implements Gateway. With an empty queue it returns the first
// catalogue mode, so tests that do not care about the label keep working.
func (m *MockGateway) DecideMode(ctx context.Context, req DecideRequest) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.decideReqs = append(m.decideReqs, req)

	if len(m.decisions) > 0 {
		next := m.decisions[0]
		m.decisions = m.decisions[1:]
		if next.err != nil {
			return nil, next.err
		}
		return next.decision, nil
	}

	if len(req.Modes) == 0 {
		return nil, fmt.Errorf("no modes provided")
	}
	return &Decision{Mode: req.Modes[0].Name, Rationale: "mock default"}, nil
}

// SummarizeExamples implements Gateway. With an empty queue it returns one
// generic draft per call.
func (m *MockGateway) SummarizeExamples(ctx context.Context, req SummarizeRequest) ([]RuleDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sumReqs = append(m.sumReqs, req)

	if len(m.summaries) > 0 {
		next := m.summaries[0]
		m.summaries = m.summaries[1:]
		if next.err != nil {
			return nil, next.err
		}
		return next.drafts, nil
	}

	return []RuleDraft{{Text: "Prefer the mode the operator chose in similar situations."}}, nil
}

// Info implements Gateway.
func (m *MockGateway) Info() Info { return m.info }

// DecideRequests returns a copy of all recorded decision requests.
func (m *MockGateway) DecideRequests() []DecideRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DecideRequest, len(m.decideReqs))
	copy(out, m.decideReqs)
	return out
}

// SummarizeRequests returns a copy of all recorded summarization requests.
func (m *MockGateway) SummarizeRequests() []SummarizeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SummarizeRequest, len(m.sumReqs))
	copy(out, m.sumReqs)
	return out
}
