package llm

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

type anthropicMessages interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error)
}

type AnthropicGenerator struct {
	msgs        anthropicMessages
	model       string
	maxTokens   int
	temperature float64
}

func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := anthropicsdk.NewClient(opts...)
	return newAnthropicGenerator(&client.Messages, cfg), nil
}

func newAnthropicGenerator(msgs anthropicMessages, cfg Config) *AnthropicGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicGenerator{
		msgs:        msgs,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate returns the concatenated text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		System:    []anthropicsdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
		Temperature: param.NewOpt(g.temperature),
	}

	msg, err := g.msgs.New(ctx, params)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", errors.New("anthropic: empty response")
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, ""), nil
}
