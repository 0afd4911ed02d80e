package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/logging"
	"github.com/hupe1980/modepilot/store"
)

// Options configures a Loop instance using the functional options pattern.
type Options struct {
	// Threshold is the pending-example count that triggers MaybeSummarize
	// when the task context does not set its own.
	Threshold int

	// MaxBatch caps how many examples one summarization call covers. A
	// larger pending window is walked in ordered sub-batches. Zero or
	// negative means a single call covers the whole window.
	MaxBatch int

	// ExampleStore receives recorded outcomes. Defaults to an in-memory
	// store.
	ExampleStore core.ExampleStore

	// RuleStore receives distilled rules. Defaults to an in-memory store.
	RuleStore core.RuleStore

	// Logger receives learning telemetry. Defaults to NoOp.
	Logger logging.Logger
}

// DefaultOptions provides the loop tuning defaults. Stores and logger are
// filled in by New.
var DefaultOptions = Options{
	Threshold: 5,
	MaxBatch:  20,
}

// Loop owns outcome recording and rule distillation for one task. The
// tracker passed to New identifies the task; decision reads live in the
// engine package, so Loop and Engine share stores but never call each other.
type Loop struct {
	gw       gateway.Gateway
	tracker  core.Tracker
	examples core.ExampleStore
	rules    core.RuleStore
	opts     Options
}

// New creates a learning loop for the given gateway and tracker.
func New(gw gateway.Gateway, tracker core.Tracker, optFns ...func(o *Options)) *Loop {
	opts := DefaultOptions
	opts.ExampleStore = store.NewInMemoryExampleStore()
	opts.RuleStore = store.NewInMemoryRuleStore()
	opts.Logger = logging.NoOpLogger{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions.Threshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Loop{
		gw:       gw,
		tracker:  tracker,
		examples: opts.ExampleStore,
		rules:    opts.RuleStore,
		opts:     opts,
	}
}

// RecordOutcome appends one example and checkpoints the example cursor. The
// store allocates the interaction id; with dense ids the new id equals the
// new example count, which becomes the task's example_index.
//
// The example is durable once the append succeeds. A failed cursor commit is
// surfaced but self-healing: commits are monotonic, so the next successful
// one covers it.
func (l *Loop) RecordOutcome(ctx context.Context, task *core.TaskContext, ex core.Example) (core.Example, error) {
	stored, err := l.examples.Append(ctx, ex)
	if err != nil {
		return core.Example{}, fmt.Errorf("record outcome: %w", err)
	}

	task.ExampleIndex = int(stored.InteractionID)

	if err := l.tracker.Commit(ctx, task.Cursors()); err != nil {
		return stored, fmt.Errorf("commit example cursor: %w", err)
	}

	l.opts.Logger.Debug("outcome recorded task_id=%s interaction_id=%d override=%t",
		task.ID, stored.InteractionID, stored.IsOverride())

	return stored, nil
}

// MaybeSummarize distills the pending examples once their count reaches the
// task's threshold (falling back to Options.Threshold). Below the threshold
// it is a no-op.
func (l *Loop) MaybeSummarize(ctx context.Context, task *core.TaskContext) error {
	threshold := task.SummarizeThreshold
	if threshold <= 0 {
		threshold = l.opts.Threshold
	}

	if task.Pending() < threshold {
		return nil
	}

	return l.Summarize(ctx, task)
}

// Summarize distills all pending examples regardless of threshold, walking
// them in ordered sub-batches of at most MaxBatch. Callers use it to flush
// below-threshold stragglers at end of run. With nothing pending it is a
// no-op.
//
// Each completed sub-batch commits before the next begins, so a failure
// keeps everything distilled so far and leaves the rest pending.
func (l *Loop) Summarize(ctx context.Context, task *core.TaskContext) error {
	for task.Pending() > 0 {
		before := task.InteractIndex
		if err := l.summarizeBatch(ctx, task); err != nil {
			return err
		}
		// a batch that cannot advance the cursor must not spin
		if task.InteractIndex == before {
			return nil
		}
	}

	return nil
}

func (l *Loop) summarizeBatch(ctx context.Context, task *core.TaskContext) error {
	from := task.InteractIndex
	to := task.ExampleIndex
	if l.opts.MaxBatch > 0 && to-from > l.opts.MaxBatch {
		to = from + l.opts.MaxBatch
	}

	batch, err := l.examples.Slice(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load pending examples: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	// existing rules give the model de-duplication context only
	existing, err := l.rules.Active(ctx, task.MaxActiveRules)
	if err != nil {
		return fmt.Errorf("load existing rules: %w", err)
	}

	drafts, err := l.gw.SummarizeExamples(ctx, gateway.SummarizeRequest{
		TaskID:      task.ID,
		Description: task.Description,
		Modes:       task.Modes,
		Examples:    batch,
		Existing:    existing,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}

	span := core.Range{
		From: batch[0].InteractionID,
		To:   batch[len(batch)-1].InteractionID,
	}

	rules := make([]core.Rule, 0, len(drafts))
	for _, d := range drafts {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		rules = append(rules, core.NewRule(text, span))
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: no rules distilled from examples %s", core.ErrSummarizationFailed, span)
	}

	if err := l.rules.Append(ctx, rules...); err != nil {
		return fmt.Errorf("append rules: %w", err)
	}

	task.InteractIndex = int(span.To)

	if err := l.tracker.Commit(ctx, task.Cursors()); err != nil {
		return fmt.Errorf("commit interact cursor: %w", err)
	}

	l.opts.Logger.Info("examples summarized task_id=%s range=%s rules=%d",
		task.ID, span, len(rules))

	return nil
}
