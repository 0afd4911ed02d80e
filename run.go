package modepilot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/engine"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/learning"
	"github.com/hupe1980/modepilot/session"
)

// Run is one teleoperation session against one task. All methods are
// synchronous: the robot-facing caller blocks on Decide until the gateway
// answers or the decision timeout expires. A Run is safe for concurrent use,
// though the decision cycle itself is expected to be single-threaded.
type Run struct {
	pilot   *Pilot
	task    *core.TaskContext
	state   *session.State
	journal *session.Journal
	budget  *core.CallBudget
	eng     *engine.Engine
	loop    *learning.Loop

	runCtx context.Context
	ended  atomic.Bool
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.state.RunID() }

// Task returns a copy of the run's task context, including the live cursor
// values.
func (r *Run) Task() *core.TaskContext { return r.task.Clone() }

// State exposes the run's in-flight session state.
func (r *Run) State() *session.State { return r.state }

// Journal exposes the run's switch journal.
func (r *Run) Journal() *session.Journal { return r.journal }

// Remaining reports how many gateway calls the run may still spend, or -1
// when unlimited.
func (r *Run) Remaining() int { return r.budget.Remaining() }

// Decide runs one decision cycle against the live snapshot. On success the
// decided mode is applied to the session state and journaled. On failure
// nothing changes: the caller picks the fallback policy, typically manual
// mode selection.
func (r *Run) Decide(ctx context.Context, live core.Snapshot) (core.ModeDecision, error) {
	if err := r.guard(); err != nil {
		return core.ModeDecision{}, err
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	from := r.state.CurrentMode()

	decision, err := r.eng.Decide(ctx, r.task, live)
	if err != nil {
		if errors.Is(err, core.ErrDecisionUnavailable) || errors.Is(err, core.ErrInvalidModeResponse) {
			r.journal.NoteFailure()
		}
		return core.ModeDecision{}, err
	}

	r.journal.NoteDecision()
	r.journal.Record(session.SwitchRecord{
		Initiator: session.InitiatorAuto,
		From:      from,
		To:        decision.Mode,
		Rationale: decision.Rationale,
	})
	r.state.ApplyDecision(decision, live)

	return decision, nil
}

// Override applies the operator's corrected mode. The switch takes effect on
// the session state first and unconditionally; recording the outcome example
// and any triggered summarization happen after and cannot undo it.
//
// When no mode was proposed yet there is nothing to correct, so the switch
// is journaled but no example is recorded. A summarization failure after a
// recorded example is returned, but the switch and the example are already
// durable.
func (r *Run) Override(ctx context.Context, corrected string, live core.Snapshot) (core.Example, error) {
	if err := r.guard(); err != nil {
		return core.Example{}, err
	}
	if !r.task.HasMode(corrected) {
		return core.Example{}, fmt.Errorf("override: mode %q not in catalogue %v", corrected, r.task.ModeNames())
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	proposed := r.state.CurrentMode()
	r.state.SetMode(corrected)
	r.journal.Record(session.SwitchRecord{
		Initiator: session.InitiatorOperator,
		From:      proposed,
		To:        corrected,
	})

	if proposed == "" {
		return core.Example{}, nil
	}

	if live.IsZero() {
		live = r.state.LastSnapshot()
	}

	stored, err := r.loop.RecordOutcome(ctx, r.task, core.Example{
		Snapshot:      live,
		ProposedMode:  proposed,
		CorrectedMode: corrected,
		RunID:         r.state.RunID(),
	})
	if err != nil {
		return core.Example{}, err
	}

	if r.pilot.opts.SummarizeOnRecord {
		if err := r.loop.MaybeSummarize(ctx, r.task); err != nil {
			r.journal.NoteFailure()
			return stored, err
		}
	}

	return stored, nil
}

// Confirm notes that the operator explicitly kept the proposed mode. An
// example is recorded only when the pilot was built with LogConfirmations;
// otherwise Confirm is a no-op, since overrides are the explicit learning
// signal.
func (r *Run) Confirm(ctx context.Context) (core.Example, error) {
	if err := r.guard(); err != nil {
		return core.Example{}, err
	}

	decision, ok := r.state.LastDecision()
	if !ok {
		return core.Example{}, fmt.Errorf("confirm: no proposed mode to confirm")
	}

	if !r.pilot.opts.LogConfirmations {
		return core.Example{}, nil
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	stored, err := r.loop.RecordOutcome(ctx, r.task, core.Example{
		Snapshot:      r.state.LastSnapshot(),
		ProposedMode:  decision.Mode,
		CorrectedMode: decision.Mode,
		RunID:         r.state.RunID(),
	})
	if err != nil {
		return core.Example{}, err
	}

	if r.pilot.opts.SummarizeOnRecord {
		if err := r.loop.MaybeSummarize(ctx, r.task); err != nil {
			r.journal.NoteFailure()
			return stored, err
		}
	}

	return stored, nil
}

// End flushes below-threshold stragglers through a final summarization pass,
// deregisters the run and returns the journal summary. A summarization
// failure is returned alongside the summary; the pending examples simply
// stay pending for the next run.
func (r *Run) End(ctx context.Context) (session.RunSummary, error) {
	if err := r.guard(); err != nil {
		return session.RunSummary{}, err
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	var sumErr error
	if err := r.loop.Summarize(ctx, r.task); err != nil {
		r.journal.NoteFailure()
		sumErr = err
	}

	r.ended.Store(true)
	r.pilot.deregister(r.state.RunID())

	summary := r.journal.Summary(r.state.RunID(), r.task.ID, r.state.StartedAt())

	r.pilot.logger.Info("run ended run_id=%s task_id=%s decisions=%d switches=%d failures=%d",
		summary.RunID, summary.TaskID, summary.Decisions, len(summary.Switches), summary.GatewayFailures)

	return summary, sumErr
}

// guard rejects operations on a run that was ended or canceled.
func (r *Run) guard() error {
	if r.ended.Load() {
		return fmt.Errorf("run %s already ended", r.state.RunID())
	}
	if err := r.runCtx.Err(); err != nil {
		return fmt.Errorf("run %s canceled: %w", r.state.RunID(), err)
	}
	return nil
}

// callContext couples a per-call context to the run's lifetime, so Cancel
// interrupts in-flight gateway calls while caller deadlines stay honored.
func (r *Run) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.runCtx, cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}

// budgetGateway charges every gateway call, decisions and summarizations
// alike, against the run's call budget before letting it through.
type budgetGateway struct {
	gateway.Gateway
	budget *core.CallBudget
}

func withBudget(gw gateway.Gateway, budget *core.CallBudget) gateway.Gateway {
	return &budgetGateway{Gateway: gw, budget: budget}
}

// DecideMode implements gateway.Gateway.
func (g *budgetGateway) DecideMode(ctx context.Context, req gateway.DecideRequest) (*gateway.Decision, error) {
	if err := g.budget.Increment(); err != nil {
		return nil, err
	}

	return g.Gateway.DecideMode(ctx, req)
}

// SummarizeExamples implements gateway.Gateway.
func (g *budgetGateway) SummarizeExamples(ctx context.Context, req gateway.SummarizeRequest) ([]gateway.RuleDraft, error) {
	if err := g.budget.Increment(); err != nil {
		return nil, err
	}

	return g.Gateway.SummarizeExamples(ctx, req)
}
