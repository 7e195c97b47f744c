package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGenerationTimeout = 60 * time.Second

const initialSummaryPrompt = `You are an expert in textual analysis who distils customer feedback from surveys into clear, concise summaries.

Guidelines for generating the summary:

1. Identify and group responses that refer to the same feature.

2. For each feature identified, write one short, succinct sentence.

3. Keep only the most relevant feedback: distinct issues or specific praise.

4. Do not include general sentiment or vague feedback.

LIST OF RESPONSES BEGIN

%s

LIST OF RESPONSES END

Summary:`

const updateSummaryPrompt = `You are an expert in textual analysis who distils customer feedback from surveys into clear, concise summaries. Your task is to update an existing summary with insights from new survey responses.

Guidelines for updating the summary:

1. Review the new responses and the existing summary. Group responses by feature and determine whether each feature is already covered by the summary or is new.

2. For every identified feature, existing or new, write one short, succinct sentence.

3. Keep distinct issues and specific praise. Leave out general sentiment and vague feedback.

EXISTING SUMMARY BEGINS

%s

EXISTING SUMMARY ENDS

NEW RESPONSES BEGIN

%s

NEW RESPONSES END

Modified Summary:`

type SummaryMode string

const (
	SummaryModeInitial SummaryMode = "initial"
	SummaryModeUpdate  SummaryMode = "update"
)

// SummaryMerger folds batches of free-text reviews into a running digest by
// delegating the writing to a TextGenerator. It makes one attempt per call.
type SummaryMerger struct {
	generator TextGenerator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSummaryMerger creates a SummaryMerger. A non-positive timeout uses the default.
func NewSummaryMerger(generator TextGenerator, timeout time.Duration, logger *zap.Logger) *SummaryMerger {
	if generator == nil {
		panic("generator must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryMerger{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// ModeFor reports which prompt Merge uses for the given current summary.
func ModeFor(currentSummary string) SummaryMode {
	if strings.TrimSpace(currentSummary) == "" {
		return SummaryModeInitial
	}
	return SummaryModeUpdate
}

// BuildPrompt renders the prompt for merging reviews into currentSummary.
func BuildPrompt(currentSummary string, reviews []string) string {
	list := formatReviews(reviews)
	if ModeFor(currentSummary) == SummaryModeInitial {
		return fmt.Sprintf(initialSummaryPrompt, list)
	}
	return fmt.Sprintf(updateSummaryPrompt, strings.TrimSpace(currentSummary), list)
}

// Merge returns the updated summary text exactly as generated. With no usable new
// reviews the current summary is returned and the generator is not called.
func (m *SummaryMerger) Merge(ctx context.Context, currentSummary string, newResponses []string) (string, error) {
	reviews := cleanReviews(newResponses)
	if len(reviews) == 0 {
		return currentSummary, nil
	}

	mode := ModeFor(currentSummary)
	prompt := BuildPrompt(currentSummary, reviews)

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	out, err := m.generator.Generate(genCtx, prompt)
	if err != nil {
		m.logger.Error("summary generation failed",
			zap.String("mode", string(mode)),
			zap.Int("reviews", len(reviews)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: generator returned empty text", ErrGenerationFailure)
	}

	m.logger.Info("summary generated",
		zap.String("mode", string(mode)),
		zap.Int("reviews", len(reviews)),
		zap.Duration("took", time.Since(start)))

	return out, nil
}

func cleanReviews(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func formatReviews(reviews []string) string {
	var b strings.Builder
	for i, r := range reviews {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(strings.Join(strings.Fields(r), " "))
	}
	return b.String()
}
