// Package llm adapts hosted language model APIs to a plain prompt-in, text-out call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/godilite/nps-insights/internal/metrics"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const systemPrompt = "You summarise customer survey feedback for product teams. Answer with the summary only."

var ErrMissingAPIKey = errors.New("llm: api key required")

type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// Generator is implemented by every provider client in this package.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator for cfg.Provider. Calls are instrumented and make a
// single attempt; retrying is left to the caller.
func New(cfg Config, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	var (
		gen Generator
		err error
	)
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderOpenAI:
		provider = ProviderOpenAI
		gen, err = NewOpenAIGenerator(cfg)
	case ProviderAnthropic:
		gen, err = NewAnthropicGenerator(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &observed{provider: provider, next: gen, logger: logger}, nil
}

// observed records request outcome and latency for any Generator.
type observed struct {
	provider string
	next     Generator
	logger   *zap.Logger
}

func (o *observed) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := o.next.Generate(ctx, prompt)
	metrics.LLMRequestDuration.WithLabelValues(o.provider).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	case strings.TrimSpace(out) == "":
		status = "empty"
	}
	metrics.LLMRequestsTotal.WithLabelValues(o.provider, status).Inc()

	if err != nil {
		o.logger.Warn("llm request failed",
			zap.String("provider", o.provider),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
	return out, err
}

// Disabled stands in when no provider is configured; every call fails with Reason.
type Disabled struct {
	Reason error
}

func (d Disabled) Generate(context.Context, string) (string, error) {
	if d.Reason == nil {
		return "", errors.New("llm: text generation is disabled")
	}
	return "", d.Reason
}
