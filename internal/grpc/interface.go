package grpc

import (
	"context"

	"github.com/godilite/nps-insights/internal/service"
)

type DashboardService interface {
	GetMetrics(ctx context.Context, survey string) (service.AggregateMetrics, error)
	FilterResponses(ctx context.Context, survey string, f service.ResponseFilter) ([]service.ResponseCard, error)
}

type DigestService interface {
	GetDigest(ctx context.Context, survey string) (service.Digest, error)
	UpdateDigest(ctx context.Context, survey string, reviews []string) (service.Digest, error)
}
