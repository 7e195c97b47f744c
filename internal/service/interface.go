package service

import (
	"context"

	"github.com/godilite/nps-insights/internal/repository/models"
)

// ResponseRepository is the record source the dashboard reads survey answers from.
type ResponseRepository interface {
	ListResponses(ctx context.Context, survey string) ([]models.SurveyDocument, error)
}

// SummaryStore persists the running digest of each survey.
type SummaryStore interface {
	GetSummary(ctx context.Context, survey string) (models.SurveySummary, bool, error)
	SaveSummary(ctx context.Context, summary models.SurveySummary) error
}

// TextGenerator is an opaque prompt-in, text-out language model call.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
