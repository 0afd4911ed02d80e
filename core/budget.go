package core

import (
	"fmt"
	"sync"
)

// CallBudget enforces a maximum number of allowed gateway calls per run.
type CallBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallBudget creates a new budget with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max}
}

// Increment increases the call counter and returns an error if the budget is exhausted.
func (cb *CallBudget) Increment() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.count++
	if cb.max > 0 && cb.count > cb.max {
		return fmt.Errorf("%w: max %d gateway calls", ErrBudgetExhausted, cb.max)
	}

	return nil
}

// Count returns the current number of calls made.
func (cb *CallBudget) Count() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.count
}

// Remaining returns how many calls are left before hitting the limit.
func (cb *CallBudget) Remaining() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.max == 0 {
		return -1 // unlimited
	}

	return cb.max - cb.count
}
