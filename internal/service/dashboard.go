package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/godilite/nps-insights/internal/metrics"
	"go.uber.org/zap"
)

const (
	dbTimeout = 5 * time.Second
)

// Survey names double as Mongo collection names and cache key segments.
var surveyNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateSurvey rejects names that are empty or unsafe as a collection name.
func ValidateSurvey(name string) error {
	if !surveyNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSurvey, name)
	}
	return nil
}

// DashboardService loads survey responses and derives the dashboard views from them.
type DashboardService struct {
	storage    ResponseRepository
	aggregator *Aggregator
	logger     *zap.Logger
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(storage ResponseRepository, aggregator *Aggregator, logger *zap.Logger) *DashboardService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if aggregator == nil {
		aggregator = NewAggregator()
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &DashboardService{
		storage:    storage,
		aggregator: aggregator,
		logger:     logger,
	}
}

func (s *DashboardService) loadResponses(ctx context.Context, survey string) ([]SurveyResponse, error) {
	if err := ValidateSurvey(survey); err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	docs, err := s.storage.ListResponses(dbCtx, survey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: survey %q has no responses", ErrEmptyDataset, survey)
	}
	for _, d := range docs {
		if len(d.Problems) > 0 {
			s.logger.Warn("stored response has unreadable fields",
				zap.String("survey", survey),
				zap.String("id", d.ID),
				zap.Strings("problems", d.Problems))
		}
	}
	return ResponsesFromDocuments(docs), nil
}

// GetMetrics aggregates every stored response of a survey. Malformed records are
// skipped and reported in the result rather than failing the whole load.
func (s *DashboardService) GetMetrics(ctx context.Context, survey string) (AggregateMetrics, error) {
	start := time.Now()

	responses, err := s.loadResponses(ctx, survey)
	if err != nil {
		return AggregateMetrics{}, err
	}

	result, err := s.aggregator.Aggregate(responses)
	metrics.SkippedRecords.WithLabelValues(survey).Set(float64(result.SkippedRecords))
	if err != nil {
		s.logger.Warn("aggregation produced no metrics",
			zap.String("survey", survey),
			zap.Int("total", result.TotalResponses),
			zap.Int("skipped", result.SkippedRecords))
		return result, err
	}

	if result.SkippedRecords > 0 {
		s.logger.Warn("skipped malformed survey records",
			zap.String("survey", survey),
			zap.Int("skipped", result.SkippedRecords),
			zap.String("first_issue", result.Skipped[0].Reason))
	}

	metrics.NPSScore.WithLabelValues(survey).Set(result.NPSScore)
	metrics.AggregationDuration.WithLabelValues(survey).Observe(time.Since(start).Seconds())

	s.logger.Info("computed survey metrics",
		zap.String("survey", survey),
		zap.Int("total", result.TotalResponses),
		zap.Float64("nps", result.NPSScore),
		zap.Duration("took", time.Since(start)))

	return result, nil
}

// ValidateFilter fills default bounds and rejects inconsistent filters.
func ValidateFilter(f ResponseFilter) (lo, hi int, err error) {
	lo, hi = 0, maxScore
	if f.MinScore != nil {
		lo = *f.MinScore
	}
	if f.MaxScore != nil {
		hi = *f.MaxScore
	}
	if lo < 0 || hi > maxScore || lo > hi {
		return 0, 0, fmt.Errorf("%w: score range [%d,%d]", ErrInvalidFilter, lo, hi)
	}
	if f.Sentiment != "" && !f.Sentiment.Valid() {
		return 0, 0, fmt.Errorf("%w: sentiment %q", ErrInvalidFilter, f.Sentiment)
	}
	return lo, hi, nil
}

// FilterResponses returns the individual responses matching the filter, oldest first.
func (s *DashboardService) FilterResponses(ctx context.Context, survey string, f ResponseFilter) ([]ResponseCard, error) {
	lo, hi, err := ValidateFilter(f)
	if err != nil {
		return nil, err
	}

	responses, err := s.loadResponses(ctx, survey)
	if err != nil {
		return nil, err
	}

	asg := s.aggregator.Categorize(responses)
	cards := make([]ResponseCard, 0, len(responses))
	for i, r := range responses {
		if !asg.valid(i) {
			continue
		}
		if *r.Score < lo || *r.Score > hi {
			continue
		}
		if f.Sentiment != "" && r.Sentiment != f.Sentiment {
			continue
		}
		cards = append(cards, ResponseCard{
			ID:        r.ID,
			Score:     *r.Score,
			Category:  asg.Categories[i],
			Sentiment: r.Sentiment,
			Review:    strings.TrimSpace(r.ReviewText),
			Date:      r.Date,
		})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Date.Before(cards[j].Date)
	})

	s.logger.Debug("filtered survey responses",
		zap.String("survey", survey),
		zap.Int("min", lo),
		zap.Int("max", hi),
		zap.String("sentiment", string(f.Sentiment)),
		zap.Int("matched", len(cards)))

	return cards, nil
}
