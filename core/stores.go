package core

import "context"

// ExampleStore persists the ordered, append-only sequence of examples for one
// task. Implementations must allocate dense interaction ids (1..N) on append
// and guard allocation against concurrent runs of the same task.
type ExampleStore interface {
	// Append persists the example with the next interaction id and returns
	// the stored record. The write is all-or-nothing at record granularity.
	Append(ctx context.Context, ex Example) (Example, error)

	// Slice returns the examples at zero-based positions [from, to) in
	// append order. With dense ids, position i holds interaction id i+1.
	Slice(ctx context.Context, from, to int) ([]Example, error)

	// Recent returns up to n examples, most recent first.
	Recent(ctx context.Context, n int) ([]Example, error)

	// Len returns the number of persisted examples.
	Len(ctx context.Context) (int, error)
}

// RuleStore persists the ordered, append-only sequence of distilled rules for
// one task. Rules are never physically deleted: prompt budgeting is
// presentation-time eviction through Active.
type RuleStore interface {
	// Append persists the rules in order, all-or-nothing.
	Append(ctx context.Context, rules ...Rule) error

	// Active returns up to maxCount rules newest-first by creation order.
	// Older rules are excluded from the result but remain in the store.
	// maxCount <= 0 returns all rules newest-first.
	Active(ctx context.Context, maxCount int) ([]Rule, error)

	// All returns every rule in append order, including archived ones.
	All(ctx context.Context) ([]Rule, error)

	// Len returns the number of persisted rules.
	Len(ctx context.Context) (int, error)
}

// Tracker owns cursor persistence for one task context. Load reads the full
// context at run start; Commit checkpoints the cursors after each recorded
// outcome and each successful summarization pass. Commits are idempotent and
// never move a cursor backward, so a crash between checkpoints loses at most
// one uncommitted update and never corrupts ordering.
type Tracker interface {
	Load(ctx context.Context) (*TaskContext, error)
	Commit(ctx context.Context, c Cursors) error
}
