package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	defaultOpenAIModel     = "gpt-3.5-turbo-1106"
	defaultOpenAIMaxTokens = 1024
)

type openaiChatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type OpenAIGenerator struct {
	completions openaiChatCompletions
	model       string
	maxTokens   int
	temperature float64
}

func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
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

	client := openai.NewClient(opts...)
	return newOpenAIGenerator(&client.Chat.Completions, cfg), nil
}

func newOpenAIGenerator(completions openaiChatCompletions, cfg Config) *OpenAIGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxTokens
	}
	return &OpenAIGenerator{
		completions: completions,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate sends prompt as the user turn of a chat completion and returns the
// first choice's text.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(g.model),
		MaxTokens: openai.Int(int64(g.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
	}

	completion, err := g.completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
