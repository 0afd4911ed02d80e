package core

import "fmt"

var (
	// ErrDecisionUnavailable is returned when the gateway is unreachable or
	// times out during a decision. Recoverable: the caller may retry or fall
	// back to manual mode selection.
	ErrDecisionUnavailable = fmt.Errorf("mode decision unavailable")

	// ErrInvalidModeResponse is returned when the gateway produces a mode
	// label outside the task's declared catalogue. The label is surfaced,
	// never auto-corrected; a wrong guess here is a safety-relevant event.
	ErrInvalidModeResponse = fmt.Errorf("invalid mode response")

	// ErrSummarizationFailed is returned when rule distillation fails. The
	// interact cursor is not advanced, so the pending examples are retried
	// on the next summarization pass.
	ErrSummarizationFailed = fmt.Errorf("summarization failed")

	// ErrStoreCorruption indicates a malformed persisted record. Fatal for
	// the task's learning loop; the run should continue to allow manual
	// operation rather than crash the robot session.
	ErrStoreCorruption = fmt.Errorf("store corruption")

	// ErrBudgetExhausted is returned once a run has spent its gateway call
	// budget.
	ErrBudgetExhausted = fmt.Errorf("gateway call budget exhausted")
)

// CorruptRecordError reports a persisted record that failed to decode or
// violated store ordering. It matches ErrStoreCorruption via errors.Is.
type CorruptRecordError struct {
	Path string
	Line int
	Err  error
}

// Error implements the error interface.
func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s:%d: %v", e.Path, e.Line, e.Err)
}

// Unwrap returns the underlying decode/ordering error.
func (e *CorruptRecordError) Unwrap() error { return e.Err }

// Is reports ErrStoreCorruption so callers can test with errors.Is without
// knowing the concrete type.
func (e *CorruptRecordError) Is(target error) bool { return target == ErrStoreCorruption }
