package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/modepilot/core"
)

// Compile-time assertions that the in-memory stores satisfy the contracts.
var (
	_ core.ExampleStore = (*InMemoryExampleStore)(nil)
	_ core.RuleStore    = (*InMemoryRuleStore)(nil)
)

// InMemoryExampleStore is a trivial in‑process core.ExampleStore useful for
// tests, examples and single‑process prototypes. Records are copied on read
// so callers cannot mutate history.
type InMemoryExampleStore struct {
	mu       sync.RWMutex
	examples []core.Example
}

// NewInMemoryExampleStore returns an empty in‑memory example store.
func NewInMemoryExampleStore() *InMemoryExampleStore {
	return &InMemoryExampleStore{}
}

// Append implements core.ExampleStore.
func (s *InMemoryExampleStore) Append(_ context.Context, ex core.Example) (core.Example, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex.InteractionID = int64(len(s.examples)) + 1
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now().UTC()
	}
	s.examples = append(s.examples, ex)

	return ex, nil
}

// Slice implements core.ExampleStore.
func (s *InMemoryExampleStore) Slice(_ context.Context, from, to int) ([]core.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 || to < from || to > len(s.examples) {
		return nil, fmt.Errorf("example store: invalid slice bounds [%d,%d) for %d records", from, to, len(s.examples))
	}

	out := make([]core.Example, to-from)
	copy(out, s.examples[from:to])

	return out, nil
}

// Recent implements core.ExampleStore.
func (s *InMemoryExampleStore) Recent(_ context.Context, n int) ([]core.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return nil, nil
	}
	if n > len(s.examples) {
		n = len(s.examples)
	}

	out := make([]core.Example, n)
	for i := 0; i < n; i++ {
		out[i] = s.examples[len(s.examples)-1-i]
	}

	return out, nil
}

// Len implements core.ExampleStore.
func (s *InMemoryExampleStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.examples), nil
}

// InMemoryRuleStore is a trivial in‑process core.RuleStore.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules []core.Rule
}

// NewInMemoryRuleStore returns an empty in‑memory rule store.
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{}
}

// Append implements core.RuleStore.
func (s *InMemoryRuleStore) Append(_ context.Context, rules ...core.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = append(s.rules, rules...)

	return nil
}

// Active implements core.RuleStore: up to maxCount rules, newest first.
func (s *InMemoryRuleStore) Active(_ context.Context, maxCount int) ([]core.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.rules)
	if maxCount > 0 && maxCount < n {
		n = maxCount
	}

	out := make([]core.Rule, n)
	for i := 0; i < n; i++ {
		out[i] = s.rules[len(s.rules)-1-i]
	}

	return out, nil
}

// All implements core.RuleStore.
func (s *InMemoryRuleStore) All(_ context.Context) ([]core.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Rule, len(s.rules))
	copy(out, s.rules)

	return out, nil
}

// Len implements core.RuleStore.
func (s *InMemoryRuleStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rules), nil
}
