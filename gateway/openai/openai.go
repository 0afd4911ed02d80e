// Package openai provides an implementation of gateway.Gateway using the
// OpenAI Chat Completions API with structured outputs. It renders ModePilot's
// normalized requests into chat messages and parses the replies back.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/modepilot/gateway"
)

const (
	decideSystem    = "You are a mode decision assistant for shared-control robot teleoperation. Follow the output format exactly."
	summarizeSystem = "You distill operator feedback into mode selection rules for robot teleoperation. Follow the output format exactly."
)

// Options configure the OpenAI gateway adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Gateway wraps the OpenAI Chat Completions API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI gateway using the official client
func New(optFns ...func(o *Options)) *Gateway {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI gateway from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:               openai.ChatModelGPT4o,
		Temperature:         0.0,
		MaxCompletionTokens: 1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Gateway{client: client, opts: opts}
}

// DecideMode implements gateway.Gateway.
func (g *Gateway) DecideMode(ctx context.Context, req gateway.DecideRequest) (*gateway.Decision, error) {
	text, err := g.complete(ctx, decideSystem, gateway.RenderDecisionPrompt(req), "mode_decision", gateway.DecisionSchema())
	if err != nil {
		return nil, err
	}

	return gateway.ParseDecision(text)
}

// SummarizeExamples implements gateway.Gateway.
func (g *Gateway) SummarizeExamples(ctx context.Context, req gateway.SummarizeRequest) ([]gateway.RuleDraft, error) {
	text, err := g.complete(ctx, summarizeSystem, gateway.RenderSummarizePrompt(req), "rule_drafts", gateway.DraftSchema())
	if err != nil {
		return nil, err
	}

	return gateway.ParseRuleDrafts(text)
}

// complete issues one non-streaming completion constrained to the given JSON
// schema and returns the raw reply text.
func (g *Gateway) complete(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Info returns metadata describing this OpenAI gateway implementation.
func (g *Gateway) Info() gateway.Info {
	return gateway.Info{
		Provider: "openai",
		Model:    g.opts.Model,
	}
}
