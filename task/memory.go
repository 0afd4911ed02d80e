package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/modepilot/core"
)

// Compile-time assertion that MemoryTracker satisfies the tracker contract.
var _ core.Tracker = (*MemoryTracker)(nil)

// MemoryTracker is an in-process core.Tracker for tests and ephemeral runs.
// It holds a private clone of the task context, so callers can mutate what
// Load returns without affecting later loads.
type MemoryTracker struct {
	mu sync.Mutex
	tc *core.TaskContext
}

// NewMemoryTracker creates a tracker seeded with a validated clone of tc.
func NewMemoryTracker(tc *core.TaskContext) (*MemoryTracker, error) {
	if tc == nil {
		return nil, fmt.Errorf("task tracker: nil task context")
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	return &MemoryTracker{tc: tc.Clone()}, nil
}

// Load implements core.Tracker.
func (t *MemoryTracker) Load(_ context.Context) (*core.TaskContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.tc.Clone(), nil
}

// Commit implements core.Tracker with the same merge semantics as
// FileTracker: per-cursor maximum, never backward.
func (t *MemoryTracker) Commit(_ context.Context, c core.Cursors) error {
	if c.ExampleIndex < 0 || c.InteractIndex < 0 {
		return fmt.Errorf("commit cursors: negative cursor")
	}
	if c.InteractIndex > c.ExampleIndex {
		return fmt.Errorf("commit cursors: interact_index %d exceeds example_index %d",
			c.InteractIndex, c.ExampleIndex)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.tc.Cursors()
	t.tc.SetCursors(core.Cursors{
		ExampleIndex:  max(cur.ExampleIndex, c.ExampleIndex),
		InteractIndex: max(cur.InteractIndex, c.InteractIndex),
	})

	return nil
}
