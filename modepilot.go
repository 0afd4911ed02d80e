// Package modepilot provides a high-level façade over the decision engine,
// the learning loop and the persistence layer, enabling a robot-facing caller
// to run LLM-assisted mode selection with a few calls. Most applications
// interact with this package by:
//  1. Creating a Pilot via New() with a gateway (optionally overriding the
//     default in-memory stores and tracker)
//  2. Starting a Run per teleoperation session (StartRun)
//  3. Calling Decide on every decision point, Override when the operator
//     corrects the engine, and End to flush learning and obtain the summary
//
// The façade delegates decisions to engine.Engine and learning to
// learning.Loop while keeping setup ergonomics concise. All defaults are safe
// for local development and testing; production deployments supply the
// file-backed stores, a FileTracker and a structured logger.
package modepilot

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/engine"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/learning"
	"github.com/hupe1980/modepilot/logging"
	"github.com/hupe1980/modepilot/session"
	"github.com/hupe1980/modepilot/store"
	"github.com/hupe1980/modepilot/task"
)

// Options configures the Pilot instance.
type Options struct {
	// EngineConfig tunes prompt assembly and the decision timeout.
	EngineConfig engine.Config

	// SummarizeThreshold is the pending-example count that triggers
	// summarization for tasks that do not set their own. Zero uses the
	// learning default.
	SummarizeThreshold int

	// MaxSummarizeBatch caps how many examples one summarization call
	// covers. Zero uses the learning default.
	MaxSummarizeBatch int

	// MaxGatewayCallsPerRun bounds the model calls a single run may spend,
	// decisions and summarizations combined. Zero means unlimited.
	MaxGatewayCallsPerRun int

	// SummarizeOnRecord triggers MaybeSummarize after every recorded
	// outcome, so rules keep up during long runs instead of waiting for
	// End.
	SummarizeOnRecord bool

	// LogConfirmations also records an example when the operator confirms
	// a proposed mode. Off by default: overrides are the explicit learning
	// signal, confirmations are optional reinforcement.
	LogConfirmations bool

	// ExampleStore persists operator outcomes. Defaults to in-memory.
	ExampleStore core.ExampleStore

	// RuleStore persists distilled rules. Defaults to in-memory.
	RuleStore core.RuleStore

	// Tracker checkpoints the task cursors. When nil, StartRun seeds an
	// in-process tracker from the task context it is given; checkpoints
	// then live and die with the process.
	Tracker core.Tracker

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Pilot is the high-level façade aggregating the engine, the learning loop
// and the shared stores. It is safe for concurrent use; each teleoperation
// session gets its own Run.
type Pilot struct {
	gw       gateway.Gateway
	opts     Options
	examples core.ExampleStore
	rules    core.RuleStore
	logger   logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New creates a Pilot for the given gateway with optional overrides. Any
// unset store is initialized with an in-memory implementation.
func New(gw gateway.Gateway, optFns ...func(o *Options)) *Pilot {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		ExampleStore: store.NewInMemoryExampleStore(),
		RuleStore:    store.NewInMemoryRuleStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Pilot{
		gw:         gw,
		opts:       opts,
		examples:   opts.ExampleStore,
		rules:      opts.RuleStore,
		logger:     opts.Logger,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// StartRun validates the task and begins a run for it. With a configured
// tracker, a nil tc loads the task context from the tracker; a non-nil tc is
// used as the starting state and its cursor checkpoints go to the tracker.
// Without a tracker, tc is required and checkpoints stay in process.
//
// The run stays registered until End or Cancel.
func (p *Pilot) StartRun(ctx context.Context, tc *core.TaskContext) (*Run, error) {
	tracker := p.opts.Tracker

	if tc == nil {
		if tracker == nil {
			return nil, fmt.Errorf("start run: no task context given and no tracker configured")
		}
		loaded, err := tracker.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		tc = loaded
	} else {
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		tc = tc.Clone()
	}

	if tracker == nil {
		mt, err := task.NewMemoryTracker(tc)
		if err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		tracker = mt
	}

	state := session.NewState("", tc.ID)
	budget := core.NewCallBudget(p.opts.MaxGatewayCallsPerRun)
	gw := withBudget(p.gw, budget)

	eng := engine.New(gw, func(o *engine.Options) {
		o.Config = p.opts.EngineConfig
		o.ExampleStore = p.examples
		o.RuleStore = p.rules
		o.Logger = p.logger
	})

	loop := learning.New(gw, tracker, func(o *learning.Options) {
		if p.opts.SummarizeThreshold > 0 {
			o.Threshold = p.opts.SummarizeThreshold
		}
		if p.opts.MaxSummarizeBatch > 0 {
			o.MaxBatch = p.opts.MaxSummarizeBatch
		}
		o.ExampleStore = p.examples
		o.RuleStore = p.rules
		o.Logger = p.logger
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	run := &Run{
		pilot:   p,
		task:    tc,
		state:   state,
		journal: session.NewJournal(),
		budget:  budget,
		eng:     eng,
		loop:    loop,
		runCtx:  runCtx,
	}

	p.mu.Lock()
	p.activeRuns[state.RunID()] = cancel
	p.mu.Unlock()

	p.logger.Info("run started run_id=%s task_id=%s pending=%d",
		state.RunID(), tc.ID, tc.Pending())

	return run, nil
}

// Cancel aborts an active run: its in-flight gateway calls are interrupted
// and all later operations on the run fail fast. The run's recorded examples
// and committed cursors are untouched.
func (p *Pilot) Cancel(runID string) error {
	p.mu.Lock()
	cancel, exists := p.activeRuns[runID]
	if exists {
		delete(p.activeRuns, runID)
	}
	p.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// Info exposes the configured gateway identity.
func (p *Pilot) Info() gateway.Info {
	return p.gw.Info()
}

func (p *Pilot) deregister(runID string) {
	p.mu.Lock()
	if cancel, exists := p.activeRuns[runID]; exists {
		cancel()
		delete(p.activeRuns, runID)
	}
	p.mu.Unlock()
}
