package mocks

import (
	"context"
	"errors"

	"github.com/godilite/nps-insights/internal/service"
)

// MockDashboardService is a function-field mock of the handler's DashboardService.
type MockDashboardService struct {
	GetMetricsFunc      func(ctx context.Context, survey string) (service.AggregateMetrics, error)
	FilterResponsesFunc func(ctx context.Context, survey string, f service.ResponseFilter) ([]service.ResponseCard, error)
}

func (m *MockDashboardService) GetMetrics(ctx context.Context, survey string) (service.AggregateMetrics, error) {
	if m.GetMetricsFunc != nil {
		return m.GetMetricsFunc(ctx, survey)
	}
	return service.AggregateMetrics{}, errors.New("GetMetricsFunc not implemented")
}

func (m *MockDashboardService) FilterResponses(ctx context.Context, survey string, f service.ResponseFilter) ([]service.ResponseCard, error) {
	if m.FilterResponsesFunc != nil {
		return m.FilterResponsesFunc(ctx, survey, f)
	}
	return nil, errors.New("FilterResponsesFunc not implemented")
}

// MockDigestService is a function-field mock of the handler's DigestService.
type MockDigestService struct {
	GetDigestFunc    func(ctx context.Context, survey string) (service.Digest, error)
	UpdateDigestFunc func(ctx context.Context, survey string, reviews []string) (service.Digest, error)
}

func (m *MockDigestService) GetDigest(ctx context.Context, survey string) (service.Digest, error) {
	if m.GetDigestFunc != nil {
		return m.GetDigestFunc(ctx, survey)
	}
	return service.Digest{}, errors.New("GetDigestFunc not implemented")
}

func (m *MockDigestService) UpdateDigest(ctx context.Context, survey string, reviews []string) (service.Digest, error) {
	if m.UpdateDigestFunc != nil {
		return m.UpdateDigestFunc(ctx, survey, reviews)
	}
	return service.Digest{}, errors.New("UpdateDigestFunc not implemented")
}
