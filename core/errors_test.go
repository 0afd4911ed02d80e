package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestCorruptRecordError_Matching(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &CorruptRecordError{Path: "/tmp/examples.jsonl", Line: 12, Err: cause}

	if !errors.Is(err, ErrStoreCorruption) {
		t.Error("CorruptRecordError should match ErrStoreCorruption")
	}
	if !errors.Is(err, cause) {
		t.Error("CorruptRecordError should unwrap to its cause")
	}

	want := "corrupt record /tmp/examples.jsonl:12: unexpected end of JSON input"
	if err.Error() != want {
		t.Errorf("unexpected message %q", err.Error())
	}

	var cre *CorruptRecordError
	wrapped := fmt.Errorf("loading rules: %w", err)
	if !errors.As(wrapped, &cre) || cre.Line != 12 {
		t.Errorf("errors.As failed on wrapped error: %v", wrapped)
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{
		ErrDecisionUnavailable,
		ErrInvalidModeResponse,
		ErrSummarizationFailed,
		ErrStoreCorruption,
		ErrBudgetExhausted,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v should not match %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("%w: gateway dial tcp: connection refused", ErrDecisionUnavailable)
	if !errors.Is(wrapped, ErrDecisionUnavailable) {
		t.Error("wrapped sentinel should still match")
	}
}
