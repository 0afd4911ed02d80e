package modepilot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/internal/testutil"
	"github.com/hupe1980/modepilot/session"
	"github.com/hupe1980/modepilot/store"
)

func TestPilot_DecideOverrideEndCycle(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.AddDecision("translate", "target is far away")
	gw.AddDrafts("Prefer gripper once the marker is within reach.")

	pilot := New(gw)
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)
	assert.NotEmpty(t, run.ID())

	decision, err := run.Decide(ctx, core.Snapshot{Summary: "marker 40cm away"})
	assert.NoError(t, err)
	assert.Equal(t, "translate", decision.Mode)
	assert.Equal(t, "translate", run.State().CurrentMode())

	stored, err := run.Override(ctx, "gripper", core.Snapshot{Summary: "marker in reach"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stored.InteractionID)
	assert.Equal(t, "gripper", run.State().CurrentMode())
	assert.Equal(t, 1, run.Task().ExampleIndex)

	summary, err := run.End(ctx)
	assert.NoError(t, err)
	assert.Equal(t, run.ID(), summary.RunID)
	assert.Equal(t, 1, summary.Decisions)
	assert.Equal(t, 1, summary.AutoSwitches)
	assert.Equal(t, 1, summary.OperatorSwitches)
	assert.Zero(t, summary.GatewayFailures)
}

func TestPilot_EndFlushesPendingExamples(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.AddDecision("translate", "far")
	gw.AddDrafts("Close the gripper once aligned with the target.")

	rules := store.NewInMemoryRuleStore()
	pilot := New(gw, func(o *Options) {
		o.RuleStore = rules
		o.SummarizeThreshold = 5 // one pending example stays below it
	})
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Decide(ctx, core.Snapshot{Summary: "far"})
	assert.NoError(t, err)
	_, err = run.Override(ctx, "gripper", core.Snapshot{Summary: "close"})
	assert.NoError(t, err)

	_, err = run.End(ctx)
	assert.NoError(t, err)

	n, _ := rules.Len(ctx)
	assert.Equal(t, 1, n, "End must flush below-threshold examples into rules")
	assert.Zero(t, run.Task().Pending())
}

func TestPilot_OverrideBeforeAnyDecision(t *testing.T) {
	gw := gateway.NewMockGateway()
	examples := store.NewInMemoryExampleStore()
	pilot := New(gw, func(o *Options) { o.ExampleStore = examples })
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	stored, err := run.Override(ctx, "gripper", core.Snapshot{Summary: "manual start"})
	assert.NoError(t, err)
	assert.Zero(t, stored.InteractionID, "nothing proposed means nothing to learn from")
	assert.Equal(t, "gripper", run.State().CurrentMode())

	n, _ := examples.Len(ctx)
	assert.Zero(t, n)
}

func TestPilot_OverrideRejectsUnknownMode(t *testing.T) {
	pilot := New(gateway.NewMockGateway())
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Override(ctx, "fly", core.Snapshot{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `"fly"`)
}

func TestPilot_ConfirmRespectsLogConfirmations(t *testing.T) {
	ctx := context.Background()

	gw := gateway.NewMockGateway()
	examples := store.NewInMemoryExampleStore()
	pilot := New(gw, func(o *Options) { o.ExampleStore = examples })

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Confirm(ctx)
	assert.Error(t, err, "nothing proposed yet")

	_, err = run.Decide(ctx, core.Snapshot{Summary: "s"})
	assert.NoError(t, err)

	stored, err := run.Confirm(ctx)
	assert.NoError(t, err)
	assert.Zero(t, stored.InteractionID, "confirmations are not recorded by default")

	n, _ := examples.Len(ctx)
	assert.Zero(t, n)

	// with LogConfirmations the confirmation becomes an example
	loggingPilot := New(gw, func(o *Options) {
		o.ExampleStore = examples
		o.LogConfirmations = true
	})
	run2, err := loggingPilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run2.Decide(ctx, core.Snapshot{Summary: "s"})
	assert.NoError(t, err)

	stored, err = run2.Confirm(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stored.InteractionID)
	assert.False(t, stored.IsOverride())
}

func TestPilot_SummarizeOnRecord(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.AddDrafts("Prefer gripper in close range.")

	rules := store.NewInMemoryRuleStore()
	pilot := New(gw, func(o *Options) {
		o.RuleStore = rules
		o.SummarizeThreshold = 1
		o.SummarizeOnRecord = true
	})
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Decide(ctx, core.Snapshot{Summary: "s"})
	assert.NoError(t, err)
	_, err = run.Override(ctx, "gripper", core.Snapshot{Summary: "s"})
	assert.NoError(t, err)

	n, _ := rules.Len(ctx)
	assert.Equal(t, 1, n, "override should trigger summarization immediately")
	assert.Zero(t, run.Task().Pending())
}

func TestPilot_GatewayCallBudget(t *testing.T) {
	gw := gateway.NewMockGateway()
	pilot := New(gw, func(o *Options) { o.MaxGatewayCallsPerRun = 2 })
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)
	assert.Equal(t, 2, run.Remaining())

	_, err = run.Decide(ctx, core.Snapshot{})
	assert.NoError(t, err)
	_, err = run.Decide(ctx, core.Snapshot{})
	assert.NoError(t, err)
	assert.Zero(t, run.Remaining())

	_, err = run.Decide(ctx, core.Snapshot{})
	assert.ErrorIs(t, err, core.ErrBudgetExhausted)
	assert.ErrorIs(t, err, core.ErrDecisionUnavailable)
}

func TestPilot_DecisionFailureLeavesStateUntouched(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.AddDecision("translate", "ok")
	gw.AddDecisionError(errors.New("gateway down"))

	pilot := New(gw)
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Decide(ctx, core.Snapshot{Summary: "first"})
	assert.NoError(t, err)

	_, err = run.Decide(ctx, core.Snapshot{Summary: "second"})
	assert.ErrorIs(t, err, core.ErrDecisionUnavailable)
	assert.Equal(t, "translate", run.State().CurrentMode(), "failed decision must not change the mode")
	assert.Equal(t, "first", run.State().LastSnapshot().Summary)

	summary, err := run.End(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Decisions)
	assert.Equal(t, 1, summary.GatewayFailures)
}

func TestPilot_CancelAbortsRun(t *testing.T) {
	pilot := New(gateway.NewMockGateway())
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	assert.NoError(t, pilot.Cancel(run.ID()))

	_, err = run.Decide(ctx, core.Snapshot{})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Error(t, pilot.Cancel("no-such-run"))
}

func TestPilot_RunEndsOnlyOnce(t *testing.T) {
	pilot := New(gateway.NewMockGateway())
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.End(ctx)
	assert.NoError(t, err)

	_, err = run.End(ctx)
	assert.Error(t, err)
	_, err = run.Decide(ctx, core.Snapshot{})
	assert.Error(t, err)
}

func TestPilot_StartRunRequiresTaskOrTracker(t *testing.T) {
	pilot := New(gateway.NewMockGateway())

	_, err := pilot.StartRun(context.Background(), nil)
	assert.Error(t, err)

	_, err = pilot.StartRun(context.Background(), &core.TaskContext{ID: "broken"})
	assert.Error(t, err)
}

func TestPilot_JournalRecordsInitiators(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.AddDecision("translate", "far")
	gw.AddDecision("translate", "still far")

	pilot := New(gw)
	ctx := context.Background()

	run, err := pilot.StartRun(ctx, testutil.NewTaskBuilder("pick_and_place").Build())
	assert.NoError(t, err)

	_, err = run.Decide(ctx, core.Snapshot{})
	assert.NoError(t, err)
	_, err = run.Decide(ctx, core.Snapshot{})
	assert.NoError(t, err)
	_, err = run.Override(ctx, "gripper", core.Snapshot{Summary: "s"})
	assert.NoError(t, err)

	records := run.Journal().Records()
	assert.Len(t, records, 3)
	assert.Equal(t, session.InitiatorAuto, records[0].Initiator)
	assert.True(t, records[0].IsSwitch(), "first decision engages a mode")
	assert.False(t, records[1].IsSwitch(), "repeated mode is journaled but no switch")
	assert.Equal(t, session.InitiatorOperator, records[2].Initiator)

	summary, err := run.End(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Decisions)
	assert.Equal(t, 1, summary.AutoSwitches)
	assert.Equal(t, 1, summary.OperatorSwitches)
}
