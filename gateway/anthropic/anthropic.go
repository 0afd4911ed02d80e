// Package anthropic provides a gateway wrapper for the Anthropic Claude API.
// Claude has no server-side structured output mode, so the JSON reply shape
// is enforced through the prompt and checked by the shared parsers.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/modepilot/gateway"
)

const (
	decideSystem    = "You are a mode decision assistant for shared-control robot teleoperation. Reply with a single JSON object and nothing else."
	summarizeSystem = "You distill operator feedback into mode selection rules for robot teleoperation. Reply with a single JSON object and nothing else."
)

// Options configures the Anthropic gateway adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Gateway wraps the Anthropic Messages API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic gateway using the official client
func New(optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Gateway{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic gateway from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Gateway{
		client: client,
		opts:   opts,
	}
}

// DecideMode implements gateway.Gateway.
func (g *Gateway) DecideMode(ctx context.Context, req gateway.DecideRequest) (*gateway.Decision, error) {
	text, err := g.complete(ctx, decideSystem, gateway.RenderDecisionPrompt(req))
	if err != nil {
		return nil, err
	}

	return gateway.ParseDecision(text)
}

// SummarizeExamples implements gateway.Gateway.
func (g *Gateway) SummarizeExamples(ctx context.Context, req gateway.SummarizeRequest) ([]gateway.RuleDraft, error) {
	text, err := g.complete(ctx, summarizeSystem, gateway.RenderSummarizePrompt(req))
	if err != nil {
		return nil, err
	}

	return gateway.ParseRuleDrafts(text)
}

// complete issues one non-streaming message and returns the concatenated
// text blocks of the reply.
func (g *Gateway) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content returned")
	}

	return text.String(), nil
}

// Info returns metadata describing this Anthropic gateway implementation.
func (g *Gateway) Info() gateway.Info {
	return gateway.Info{
		Provider: "anthropic",
		Model:    string(g.opts.Model),
	}
}
