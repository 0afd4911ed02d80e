package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/gateway"
	"github.com/hupe1980/modepilot/internal/util"
	"github.com/hupe1980/modepilot/logging"
	"github.com/hupe1980/modepilot/store"
)

// Config defines tuning parameters for prompt assembly and the gateway call.
//
// All three values are fallbacks: a task context that sets its own
// RecencyWindow or MaxActiveRules wins over Config for that task.
type Config struct {
	// RecencyWindow caps how many of the most recent examples enter a
	// decision prompt. The window favors recency: the operator's latest
	// corrections matter more than old ones already distilled into rules.
	RecencyWindow int

	// MaxActiveRules caps how many rules enter a decision prompt, newest
	// first. Older rules stay in the store; they are evicted from the
	// prompt only.
	MaxActiveRules int

	// DecisionTimeout bounds one decision gateway call. After it expires
	// the call counts as failed and the engine surfaces
	// core.ErrDecisionUnavailable. Zero disables the bound and leaves
	// deadlines entirely to the caller's context.
	DecisionTimeout time.Duration
}

// DefaultConfig provides conservative defaults: a small recency window, a
// generous rule budget, and a timeout long enough for one model round trip.
var DefaultConfig = Config{
	RecencyWindow:   5,
	MaxActiveRules:  20,
	DecisionTimeout: 30 * time.Second,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains the prompt assembly bounds and the decision timeout.
	// Defaults to DefaultConfig.
	Config Config

	// ExampleStore supplies the recent-example window. Defaults to an
	// in-memory store.
	ExampleStore core.ExampleStore

	// RuleStore supplies the active rules. Defaults to an in-memory store.
	RuleStore core.RuleStore

	// Logger receives decision telemetry. Defaults to NoOp.
	Logger logging.Logger
}

// Engine runs the synchronous decision cycle. It is safe for concurrent use;
// all fields are immutable after construction.
type Engine struct {
	gw       gateway.Gateway
	examples core.ExampleStore
	rules    core.RuleStore
	config   Config
	logger   logging.Logger
}

// New creates an Engine for the given gateway. In-memory stores and a NoOp
// logger keep the zero-option form usable in tests and prototypes; real
// deployments pass the file-backed stores.
func New(gw gateway.Gateway, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:       DefaultConfig,
		ExampleStore: store.NewInMemoryExampleStore(),
		RuleStore:    store.NewInMemoryRuleStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		gw:       gw,
		examples: opts.ExampleStore,
		rules:    opts.RuleStore,
		config:   opts.Config,
		logger:   opts.Logger,
	}
}

// Decide runs one decision cycle against the live snapshot and returns the
// validated mode decision. It blocks until the gateway answers or the
// decision timeout expires, and it never writes to any store.
func (e *Engine) Decide(ctx context.Context, task *core.TaskContext, live core.Snapshot) (core.ModeDecision, error) {
	if err := task.Validate(); err != nil {
		return core.ModeDecision{}, err
	}

	description, err := util.RenderTemplate(task.Description, live.TemplateState())
	if err != nil {
		return core.ModeDecision{}, fmt.Errorf("render task description: %w", err)
	}

	maxRules := task.MaxActiveRules
	if maxRules <= 0 {
		maxRules = e.config.MaxActiveRules
	}
	window := task.RecencyWindow
	if window <= 0 {
		window = e.config.RecencyWindow
	}

	// store corruption must pass through loudly, not be downgraded to a
	// gateway failure
	rules, err := e.rules.Active(ctx, maxRules)
	if err != nil {
		return core.ModeDecision{}, err
	}
	examples, err := e.examples.Recent(ctx, window)
	if err != nil {
		return core.ModeDecision{}, err
	}

	req := gateway.DecideRequest{
		TaskID:      task.ID,
		Description: description,
		Modes:       task.Modes,
		Rules:       rules,
		Examples:    examples,
		Live:        live,
	}

	callCtx := ctx
	if e.config.DecisionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.DecisionTimeout)
		defer cancel()
	}

	start := time.Now()

	decision, err := e.gw.DecideMode(callCtx, req)
	if err != nil {
		e.logger.Error("mode decision failed task_id=%s error=%s", task.ID, err.Error())
		return core.ModeDecision{}, fmt.Errorf("%w: %w", core.ErrDecisionUnavailable, err)
	}

	label := strings.TrimSpace(decision.Mode)
	if !task.HasMode(label) {
		e.logger.Error("mode decision rejected task_id=%s label=%q", task.ID, label)
		return core.ModeDecision{}, fmt.Errorf("%w: %q not in catalogue %v",
			core.ErrInvalidModeResponse, label, task.ModeNames())
	}

	e.logger.Debug("mode decision task_id=%s mode=%s rules=%d examples=%d duration=%s",
		task.ID, label, len(rules), len(examples), time.Since(start))

	return core.ModeDecision{Mode: label, Rationale: strings.TrimSpace(decision.Rationale)}, nil
}

// Info exposes the underlying gateway identity for logs and diagnostics.
func (e *Engine) Info() gateway.Info {
	return e.gw.Info()
}
