package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/modepilot/logging"
)

// RetryOptions configures the retry decorator.
type RetryOptions struct {
	// MaxAttempts is the total number of attempts per call, including the
	// first one. Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the pause between attempts.
	Delay time.Duration

	// Logger receives a warning per retried attempt.
	Logger logging.Logger
}

// retryGateway decorates a Gateway with bounded retries for transient
// provider failures.
type retryGateway struct {
	gw   Gateway
	opts RetryOptions
}

// WithRetry wraps a gateway so failed calls are retried with a fixed delay.
// Context cancellation and deadline expiry are never retried.
func WithRetry(gw Gateway, optFns ...func(o *RetryOptions)) Gateway {
	opts := RetryOptions{
		MaxAttempts: 2,
		Delay:       100 * time.Millisecond,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &retryGateway{gw: gw, opts: opts}
}

// DecideMode implements Gateway.
func (g *retryGateway) DecideMode(ctx context.Context, req DecideRequest) (*Decision, error) {
	var (
		decision *Decision
		lastErr  error
	)

	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		decision, lastErr = g.gw.DecideMode(ctx, req)
		if lastErr == nil {
			return decision, nil
		}
		if !retryable(lastErr) {
			return nil, lastErr
		}
		if attempt == g.opts.MaxAttempts {
			break
		}

		g.opts.Logger.Warn("gateway.decide.retry attempt=%d error=%s", attempt, lastErr.Error())

		if err := wait(ctx, g.opts.Delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// SummarizeExamples implements Gateway.
func (g *retryGateway) SummarizeExamples(ctx context.Context, req SummarizeRequest) ([]RuleDraft, error) {
	var (
		drafts  []RuleDraft
		lastErr error
	)

	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		drafts, lastErr = g.gw.SummarizeExamples(ctx, req)
		if lastErr == nil {
			return drafts, nil
		}
		if !retryable(lastErr) {
			return nil, lastErr
		}
		if attempt == g.opts.MaxAttempts {
			break
		}

		g.opts.Logger.Warn("gateway.summarize.retry attempt=%d error=%s", attempt, lastErr.Error())

		if err := wait(ctx, g.opts.Delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// Info implements Gateway.
func (g *retryGateway) Info() Info { return g.gw.Info() }

// retryable reports whether another attempt can change the outcome.
// Cancellation and expired deadlines cannot.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
