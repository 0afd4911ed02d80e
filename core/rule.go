package core

import (
	"fmt"
	"time"
)

// Range identifies the contiguous batch of examples a rule was distilled
// from: the interaction ids From through To inclusive. Ranges produced by
// distinct summarization passes never overlap; rules distilled from the same
// batch share one Range.
type Range struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Contains reports whether the interaction id falls inside the range.
func (r Range) Contains(id int64) bool { return id >= r.From && id <= r.To }

// Len returns the number of interaction ids covered by the range.
func (r Range) Len() int64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// String formats the range for logs and store inspection.
func (r Range) String() string { return fmt.Sprintf("[%d..%d]", r.From, r.To) }

// Rule is a distilled, reusable decision heuristic derived from a batch of
// examples. Rules are additive context for future prompts: newer rules never
// replace older ones, and presentation-time eviction (not deletion) keeps the
// prompt within budget.
type Rule struct {
	ID          string    `json:"id"`
	Text        string    `json:"rule_text"`
	DerivedFrom Range     `json:"derived_from_range"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRule constructs a rule with a fresh id and a UTC creation timestamp.
func NewRule(text string, derivedFrom Range) Rule {
	return Rule{
		ID:          NewID(),
		Text:        text,
		DerivedFrom: derivedFrom,
		CreatedAt:   time.Now().UTC(),
	}
}
