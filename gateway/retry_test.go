package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/modepilot/core"
)

func retryModes() []core.ModeSpec {
	return []core.ModeSpec{{Name: "translate", Description: "move"}}
}

func TestWithRetry_RecoversFromTransientError(t *testing.T) {
	inner := NewMockGateway()
	inner.AddDecisionError(errors.New("connection reset by peer"))
	inner.AddDecision("translate", "target far away")

	gw := WithRetry(inner, func(o *RetryOptions) {
		o.MaxAttempts = 3
		o.Delay = time.Millisecond
	})

	decision, err := gw.DecideMode(context.Background(), DecideRequest{Modes: retryModes()})
	assert.NoError(t, err)
	assert.Equal(t, "translate", decision.Mode)
	assert.Len(t, inner.DecideRequests(), 2)
}

func TestWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := NewMockGateway()
	inner.AddDecisionError(errors.New("boom 1"))
	inner.AddDecisionError(errors.New("boom 2"))
	inner.AddDecision("translate", "never reached")

	gw := WithRetry(inner, func(o *RetryOptions) {
		o.MaxAttempts = 2
		o.Delay = time.Millisecond
	})

	_, err := gw.DecideMode(context.Background(), DecideRequest{Modes: retryModes()})
	assert.Error(t, err)
	assert.EqualError(t, err, "boom 2")
	assert.Len(t, inner.DecideRequests(), 2)
}

func TestWithRetry_DoesNotRetryContextErrors(t *testing.T) {
	inner := NewMockGateway()
	inner.AddDecisionError(fmt.Errorf("openai api error: %w", context.DeadlineExceeded))
	inner.AddDecision("translate", "never reached")

	gw := WithRetry(inner, func(o *RetryOptions) {
		o.MaxAttempts = 3
		o.Delay = time.Millisecond
	})

	_, err := gw.DecideMode(context.Background(), DecideRequest{Modes: retryModes()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, inner.DecideRequests(), 1)
}

func TestWithRetry_SummarizeRetries(t *testing.T) {
	inner := NewMockGateway()
	inner.AddSummarizeError(errors.New("temporary failure"))
	inner.AddDrafts("Prefer gripper when close to the target.")

	gw := WithRetry(inner, func(o *RetryOptions) {
		o.MaxAttempts = 2
		o.Delay = time.Millisecond
	})

	drafts, err := gw.SummarizeExamples(context.Background(), SummarizeRequest{})
	assert.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Len(t, inner.SummarizeRequests(), 2)
}

func TestWithRetry_DelegatesInfo(t *testing.T) {
	inner := NewMockGateway()
	gw := WithRetry(inner)
	assert.Equal(t, inner.Info(), gw.Info())
}
