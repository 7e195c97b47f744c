package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/nps-insights/internal/cachekey"
	"github.com/godilite/nps-insights/internal/service"
	"github.com/godilite/nps-insights/pkg/cache"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type GRPCHandlers struct {
	dashboard DashboardService
	digests   DigestService
	cache     *cache.ReadThrough
	logger    *zap.Logger
}

var _ DashboardServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers. A nil cache disables caching.
func NewGRPCHandlers(dashboard DashboardService, digests DigestService, rt *cache.ReadThrough, logger *zap.Logger) *GRPCHandlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewGRPCHandlers")
	}
	if digests == nil {
		panic("nil DigestService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt == nil {
		rt = cache.NewReadThrough(cache.Noop{}, defaultCacheDuration, logger)
	}
	return &GRPCHandlers{
		dashboard: dashboard,
		digests:   digests,
		cache:     rt,
		logger:    logger.Named("grpc-handler"),
	}
}

func (s *GRPCHandlers) parseSurvey(req *structpb.Struct) (string, error) {
	survey := stringField(req, "survey")
	if err := service.ValidateSurvey(survey); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return survey, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	if _, ok := status.FromError(err); ok && status.Code(err) != codes.Unknown {
		return err
	}

	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrInvalidFilter), errors.Is(err, service.ErrInvalidSurvey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrEmptyDataset):
		s.logger.Info("no responses found", zap.String("op", op))
		return status.Error(codes.NotFound, "no valid responses for the survey")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	case errors.Is(err, service.ErrGenerationFailure):
		s.logger.Error("summary generation failed", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, "summary generation failed")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	survey, err := s.parseSurvey(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	m, err := cache.FindAndCache(ctx, s.cache, cachekey.Metrics(survey), func(fetchCtx context.Context) (service.AggregateMetrics, error) {
		return s.dashboard.GetMetrics(fetchCtx, survey)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetMetrics", err)
	}

	return s.encode(ctx, "GetMetrics", m)
}

func (s *GRPCHandlers) ListResponses(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	survey, err := s.parseSurvey(req)
	if err != nil {
		return nil, err
	}

	f := service.ResponseFilter{Sentiment: service.Sentiment(stringField(req, "sentiment"))}
	if f.MinScore, err = intField(req, "min_score"); err != nil {
		return nil, err
	}
	if f.MaxScore, err = intField(req, "max_score"); err != nil {
		return nil, err
	}
	lo, hi, err := service.ValidateFilter(f)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cards, err := cache.FindAndCache(ctx, s.cache, cachekey.Responses(survey, lo, hi, f.Sentiment), func(fetchCtx context.Context) ([]service.ResponseCard, error) {
		return s.dashboard.FilterResponses(fetchCtx, survey, f)
	})
	if err != nil {
		return nil, s.handleError(ctx, "ListResponses", err)
	}

	return s.encode(ctx, "ListResponses", struct {
		Survey    string                 `json:"survey"`
		Responses []service.ResponseCard `json:"responses"`
	}{Survey: survey, Responses: cards})
}

func (s *GRPCHandlers) GetDigest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	survey, err := s.parseSurvey(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	d, err := cache.FindAndCache(ctx, s.cache, cachekey.Digest(survey), func(fetchCtx context.Context) (service.Digest, error) {
		return s.digests.GetDigest(fetchCtx, survey)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetDigest", err)
	}

	return s.encode(ctx, "GetDigest", d)
}

// UpdateDigest runs under the caller's deadline since it waits on the text generator.
func (s *GRPCHandlers) UpdateDigest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	survey, err := s.parseSurvey(req)
	if err != nil {
		return nil, err
	}
	reviews, err := stringListField(req, "reviews")
	if err != nil {
		return nil, err
	}

	d, err := s.digests.UpdateDigest(ctx, survey, reviews)
	if err != nil {
		return nil, s.handleError(ctx, "UpdateDigest", err)
	}
	cache.Put(ctx, s.cache, cachekey.Digest(survey), d)

	return s.encode(ctx, "UpdateDigest", d)
}

func (s *GRPCHandlers) encode(ctx context.Context, op string, v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}
	return out, nil
}
