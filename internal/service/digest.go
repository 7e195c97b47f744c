package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godilite/nps-insights/internal/metrics"
	"github.com/godilite/nps-insights/internal/repository/models"
	"go.uber.org/zap"
)

// DigestService keeps one running summary per survey. Updates to the same survey are
// serialised so a merge always starts from the latest saved summary.
type DigestService struct {
	store  SummaryStore
	merger *SummaryMerger
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDigestService(store SummaryStore, merger *SummaryMerger, logger *zap.Logger) *DigestService {
	if store == nil {
		panic("store must not be nil")
	}
	if merger == nil {
		panic("merger must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DigestService{
		store:  store,
		merger: merger,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (d *DigestService) lockFor(survey string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[survey]
	if !ok {
		l = &sync.Mutex{}
		d.locks[survey] = l
	}
	return l
}

// GetDigest returns the stored digest, or an empty one if none was written yet.
func (d *DigestService) GetDigest(ctx context.Context, survey string) (Digest, error) {
	if err := ValidateSurvey(survey); err != nil {
		return Digest{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, found, err := d.store.GetSummary(dbCtx, survey)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !found {
		return Digest{Survey: survey}, nil
	}
	return toDigest(rec), nil
}

// UpdateDigest merges reviews into the survey's digest and persists the result.
func (d *DigestService) UpdateDigest(ctx context.Context, survey string, reviews []string) (Digest, error) {
	if err := ValidateSurvey(survey); err != nil {
		return Digest{}, err
	}

	l := d.lockFor(survey)
	l.Lock()
	defer l.Unlock()

	current, err := d.GetDigest(ctx, survey)
	if err != nil {
		return Digest{}, err
	}

	cleaned := cleanReviews(reviews)
	if len(cleaned) == 0 {
		return current, nil
	}

	mode := ModeFor(current.Summary)
	updated, err := d.merger.Merge(ctx, current.Summary, cleaned)
	if err != nil {
		metrics.DigestUpdatesTotal.WithLabelValues(string(mode), "error").Inc()
		return Digest{}, err
	}

	rec := models.SurveySummary{
		Survey:      survey,
		Summary:     updated,
		ReviewCount: current.ReviewCount + len(cleaned),
		UpdatedAt:   d.now().UTC(),
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := d.store.SaveSummary(dbCtx, rec); err != nil {
		metrics.DigestUpdatesTotal.WithLabelValues(string(mode), "error").Inc()
		return Digest{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	metrics.DigestUpdatesTotal.WithLabelValues(string(mode), "ok").Inc()

	d.logger.Info("digest updated",
		zap.String("survey", survey),
		zap.String("mode", string(mode)),
		zap.Int("new_reviews", len(cleaned)),
		zap.Int("review_count", rec.ReviewCount))

	return toDigest(rec), nil
}

func toDigest(rec models.SurveySummary) Digest {
	return Digest{
		Survey:      rec.Survey,
		Summary:     rec.Summary,
		ReviewCount: rec.ReviewCount,
		UpdatedAt:   rec.UpdatedAt,
	}
}
