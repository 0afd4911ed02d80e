package core

import (
	"errors"
	"testing"
)

func TestCallBudget_LimitEnforced(t *testing.T) {
	budget := NewCallBudget(2)

	if err := budget.Increment(); err != nil {
		t.Fatalf("first call should fit the budget: %v", err)
	}
	if err := budget.Increment(); err != nil {
		t.Fatalf("second call should fit the budget: %v", err)
	}

	err := budget.Increment()
	if err == nil {
		t.Fatal("third call should exhaust the budget")
	}
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("expected ErrBudgetExhausted, got %v", err)
	}
	if budget.Count() != 3 {
		t.Errorf("count should include the rejected call, got %d", budget.Count())
	}
}

func TestCallBudget_Unlimited(t *testing.T) {
	budget := NewCallBudget(0)

	for i := 0; i < 100; i++ {
		if err := budget.Increment(); err != nil {
			t.Fatalf("unlimited budget should never fail: %v", err)
		}
	}
	if budget.Remaining() != -1 {
		t.Errorf("unlimited budget should report -1 remaining, got %d", budget.Remaining())
	}
}

func TestCallBudget_Remaining(t *testing.T) {
	budget := NewCallBudget(5)
	_ = budget.Increment()
	_ = budget.Increment()
	if budget.Remaining() != 3 {
		t.Errorf("expected 3 remaining, got %d", budget.Remaining())
	}
}
