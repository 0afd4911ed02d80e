package learning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/internal/testutil"
	"github.com/hupe1980/modepilot/store"
	"github.com/hupe1980/modepilot/task"
)

type loopFixture struct {
	gw       *gateway.MockGateway
	tracker  *task.MemoryTracker
	examples *store.InMemoryExampleStore
	rules    *store.InMemoryRuleStore
	loop     *Loop
	task     *core.TaskContext
}

func newLoopFixture(t *testing.T, tc *core.TaskContext, optFns ...func(o *Options)) *loopFixture {
	t.Helper()

	tracker, err := task.NewMemoryTracker(tc)
	assert.NoError(t, err)

	f := &loopFixture{
		gw:       gateway.NewMockGateway(),
		tracker:  tracker,
		examples: store.NewInMemoryExampleStore(),
		rules:    store.NewInMemoryRuleStore(),
	}

	opts := append([]func(o *Options){func(o *Options) {
		o.ExampleStore = f.examples
		o.RuleStore = f.rules
	}}, optFns...)

	f.loop = New(f.gw, f.tracker, opts...)

	loaded, err := tracker.Load(context.Background())
	assert.NoError(t, err)
	f.task = loaded

	return f
}

func (f *loopFixture) record(t *testing.T, summary string) core.Example {
	t.Helper()
	stored, err := f.loop.RecordOutcome(context.Background(), f.task,
		testutil.NewExampleBuilder().Summary(summary).Override("translate", "gripper").Build())
	assert.NoError(t, err)
	return stored
}

func TestLoop_RecordOutcomeAdvancesCursor(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Build())

	for i := 1; i <= 4; i++ {
		stored := f.record(t, fmt.Sprintf("outcome %d", i))
		assert.Equal(t, int64(i), stored.InteractionID)
		assert.Equal(t, i, f.task.ExampleIndex)
	}

	// the cursor is checkpointed, not just held in memory
	persisted, err := f.tracker.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, persisted.ExampleIndex)
	assert.Equal(t, 0, persisted.InteractIndex)
}

// MockTrackerImpl for testing checkpoint failures
type MockTrackerImpl struct{ mock.Mock }

func (m *MockTrackerImpl) Load(ctx context.Context) (*core.TaskContext, error) {
	args := m.Called(ctx)
	if tc, ok := args.Get(0).(*core.TaskContext); ok {
		return tc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTrackerImpl) Commit(ctx context.Context, cursors core.Cursors) error {
	args := m.Called(ctx, cursors)
	return args.Error(0)
}

func TestLoop_FailedCommitSurfacesButKeepsExample(t *testing.T) {
	tracker := &MockTrackerImpl{}
	tracker.On("Commit", mock.Anything, core.Cursors{ExampleIndex: 1}).Return(errors.New("disk full"))

	examples := store.NewInMemoryExampleStore()
	loop := New(gateway.NewMockGateway(), tracker, func(o *Options) {
		o.ExampleStore = examples
	})

	tc := testutil.NewTaskBuilder("pick_and_place").Build()
	stored, err := loop.RecordOutcome(context.Background(), tc,
		testutil.NewExampleBuilder().Summary("outcome").Override("translate", "gripper").Build())

	assert.Error(t, err)
	assert.Equal(t, int64(1), stored.InteractionID, "the example is durable even when the checkpoint is not")

	n, _ := examples.Len(context.Background())
	assert.Equal(t, 1, n)
	tracker.AssertExpectations(t)
}

func TestLoop_ThresholdScenario(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Threshold(3).Build())
	ctx := context.Background()

	f.gw.AddDrafts("Prefer gripper once the marker is within reach.")

	f.record(t, "outcome 1")
	f.record(t, "outcome 2")
	assert.NoError(t, f.loop.MaybeSummarize(ctx, f.task))
	assert.Empty(t, f.gw.SummarizeRequests(), "below threshold must be a no-op")
	assert.Equal(t, 0, f.task.InteractIndex)

	f.record(t, "outcome 3")
	assert.NoError(t, f.loop.MaybeSummarize(ctx, f.task))

	reqs := f.gw.SummarizeRequests()
	assert.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Examples, 3)
	assert.Equal(t, int64(1), reqs[0].Examples[0].InteractionID, "batch must be oldest first")

	rules, err := f.rules.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, core.Range{From: 1, To: 3}, rules[0].DerivedFrom)
	assert.NotEmpty(t, rules[0].ID)

	assert.Equal(t, 3, f.task.InteractIndex)
	assert.Zero(t, f.task.Pending())

	persisted, err := f.tracker.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, persisted.InteractIndex)
}

func TestLoop_FailedSummarizationKeepsCursor(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Threshold(3).Build())
	ctx := context.Background()

	f.record(t, "outcome 1")
	f.record(t, "outcome 2")
	f.record(t, "outcome 3")

	f.gw.AddSummarizeError(errors.New("model overloaded"))
	err := f.loop.MaybeSummarize(ctx, f.task)
	assert.ErrorIs(t, err, core.ErrSummarizationFailed)
	assert.Equal(t, 0, f.task.InteractIndex, "failure must not advance the cursor")

	n, _ := f.rules.Len(ctx)
	assert.Zero(t, n)

	// the failed batch merges with newer examples on the next pass
	f.record(t, "outcome 4")
	f.gw.AddDrafts("Prefer gripper close to the marker.")
	assert.NoError(t, f.loop.MaybeSummarize(ctx, f.task))

	rules, err := f.rules.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, core.Range{From: 1, To: 4}, rules[0].DerivedFrom)
	assert.Equal(t, 4, f.task.InteractIndex)
}

func TestLoop_EmptyDraftsAreAFailure(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Threshold(1).Build())
	ctx := context.Background()

	f.record(t, "outcome 1")

	f.gw.AddDrafts() // gateway answered, but with nothing usable
	err := f.loop.MaybeSummarize(ctx, f.task)
	assert.ErrorIs(t, err, core.ErrSummarizationFailed)
	assert.Equal(t, 0, f.task.InteractIndex)

	f.gw.AddDrafts("   ")
	err = f.loop.MaybeSummarize(ctx, f.task)
	assert.ErrorIs(t, err, core.ErrSummarizationFailed, "blank drafts are not rules")
}

func TestLoop_SummarizeWalksSubBatches(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Build(), func(o *Options) {
		o.MaxBatch = 2
	})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		f.record(t, fmt.Sprintf("outcome %d", i))
	}

	f.gw.AddDrafts("rule a")
	f.gw.AddDrafts("rule b")
	f.gw.AddDrafts("rule c")

	assert.NoError(t, f.loop.Summarize(ctx, f.task))

	reqs := f.gw.SummarizeRequests()
	assert.Len(t, reqs, 3)
	assert.Len(t, reqs[0].Examples, 2)
	assert.Len(t, reqs[1].Examples, 2)
	assert.Len(t, reqs[2].Examples, 1)

	rules, err := f.rules.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, rules, 3)
	assert.Equal(t, core.Range{From: 1, To: 2}, rules[0].DerivedFrom)
	assert.Equal(t, core.Range{From: 3, To: 4}, rules[1].DerivedFrom)
	assert.Equal(t, core.Range{From: 5, To: 5}, rules[2].DerivedFrom)

	assert.Equal(t, 5, f.task.InteractIndex)
}

func TestLoop_MidBatchFailureKeepsEarlierCommits(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Build(), func(o *Options) {
		o.MaxBatch = 2
	})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		f.record(t, fmt.Sprintf("outcome %d", i))
	}

	f.gw.AddDrafts("rule a")
	f.gw.AddDrafts("rule b")
	f.gw.AddSummarizeError(errors.New("model overloaded"))

	err := f.loop.Summarize(ctx, f.task)
	assert.ErrorIs(t, err, core.ErrSummarizationFailed)

	// the first two batches stay committed; only the tail is retried later
	assert.Equal(t, 4, f.task.InteractIndex)
	persisted, loadErr := f.tracker.Load(ctx)
	assert.NoError(t, loadErr)
	assert.Equal(t, 4, persisted.InteractIndex)

	n, _ := f.rules.Len(ctx)
	assert.Equal(t, 2, n)
}

func TestLoop_SummarizeWithNothingPendingIsANoOp(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Build())

	assert.NoError(t, f.loop.Summarize(context.Background(), f.task))
	assert.Empty(t, f.gw.SummarizeRequests())
}

func TestLoop_ThresholdFallsBackToOptions(t *testing.T) {
	f := newLoopFixture(t, testutil.NewTaskBuilder("pick_and_place").Build(), func(o *Options) {
		o.Threshold = 2
	})
	ctx := context.Background()

	f.gw.AddDrafts("keep translate while far away")

	f.record(t, "outcome 1")
	assert.NoError(t, f.loop.MaybeSummarize(ctx, f.task))
	assert.Empty(t, f.gw.SummarizeRequests())

	f.record(t, "outcome 2")
	assert.NoError(t, f.loop.MaybeSummarize(ctx, f.task))
	assert.Len(t, f.gw.SummarizeRequests(), 1)
	assert.Equal(t, 2, f.task.InteractIndex)
}
