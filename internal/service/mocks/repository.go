package mocks

import (
	"context"
	"errors"

	"github.com/godilite/nps-insights/internal/repository/models"
)

// MockResponseRepository is a mock implementation of the ResponseRepository interface
// for testing the service layer.
type MockResponseRepository struct {
	ListResponsesFunc func(ctx context.Context, survey string) ([]models.SurveyDocument, error)
}

// ListResponses implements the ResponseRepository interface
func (m *MockResponseRepository) ListResponses(ctx context.Context, survey string) ([]models.SurveyDocument, error) {
	if m.ListResponsesFunc != nil {
		return m.ListResponsesFunc(ctx, survey)
	}
	return nil, errors.New("ListResponsesFunc not implemented")
}

// MockSummaryStore is a mock implementation of the SummaryStore interface.
type MockSummaryStore struct {
	GetSummaryFunc  func(ctx context.Context, survey string) (models.SurveySummary, bool, error)
	SaveSummaryFunc func(ctx context.Context, summary models.SurveySummary) error
}

func (m *MockSummaryStore) GetSummary(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
	if m.GetSummaryFunc != nil {
		return m.GetSummaryFunc(ctx, survey)
	}
	return models.SurveySummary{}, false, errors.New("GetSummaryFunc not implemented")
}

func (m *MockSummaryStore) SaveSummary(ctx context.Context, summary models.SurveySummary) error {
	if m.SaveSummaryFunc != nil {
		return m.SaveSummaryFunc(ctx, summary)
	}
	return errors.New("SaveSummaryFunc not implemented")
}

// MockTextGenerator is a mock implementation of the TextGenerator interface.
// Calls counts every Generate invocation.
type MockTextGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	Calls        int
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", errors.New("GenerateFunc not implemented")
}
