package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godilite/nps-insights/internal/repository/models"
	"github.com/godilite/nps-insights/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memorySummaryStore is a concurrency-safe SummaryStore for serialisation tests.
type memorySummaryStore struct {
	mu   sync.Mutex
	data map[string]models.SurveySummary
}

func (s *memorySummaryStore) GetSummary(_ context.Context, survey string) (models.SurveySummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[survey]
	return rec, ok, nil
}

func (s *memorySummaryStore) SaveSummary(_ context.Context, rec models.SurveySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.Survey] = rec
	return nil
}

func TestNewDigestService(t *testing.T) {
	merger := NewSummaryMerger(&mocks.MockTextGenerator{}, time.Second, nil)

	assert.Panics(t, func() { NewDigestService(nil, merger, zap.NewNop()) })
	assert.Panics(t, func() { NewDigestService(&mocks.MockSummaryStore{}, nil, zap.NewNop()) })
	assert.NotNil(t, NewDigestService(&mocks.MockSummaryStore{}, merger, nil))
}

func TestDigestService_GetDigest(t *testing.T) {
	ctx := context.Background()
	merger := NewSummaryMerger(&mocks.MockTextGenerator{}, time.Second, nil)
	updated := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				assert.Equal(t, "mobile", survey)
				return models.SurveySummary{Survey: survey, Summary: "Good.", ReviewCount: 4, UpdatedAt: updated}, true, nil
			},
		}
		d, err := NewDigestService(store, merger, zap.NewNop()).GetDigest(ctx, "mobile")

		require.NoError(t, err)
		assert.Equal(t, Digest{Survey: "mobile", Summary: "Good.", ReviewCount: 4, UpdatedAt: updated}, d)
	})

	t.Run("not yet written", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{}, false, nil
			},
		}
		d, err := NewDigestService(store, merger, zap.NewNop()).GetDigest(ctx, "mobile")

		require.NoError(t, err)
		assert.Equal(t, Digest{Survey: "mobile"}, d)
	})

	t.Run("storage error", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{}, false, errors.New("disk full")
			},
		}
		_, err := NewDigestService(store, merger, zap.NewNop()).GetDigest(ctx, "mobile")

		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestDigestService_UpdateDigest(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("merges and saves", func(t *testing.T) {
		var saved models.SurveySummary
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{Survey: survey, Summary: "Price is fair.", ReviewCount: 2}, true, nil
			},
			SaveSummaryFunc: func(ctx context.Context, rec models.SurveySummary) error {
				saved = rec
				return nil
			},
		}
		gen := &mocks.MockTextGenerator{
			GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				assert.Contains(t, prompt, "Price is fair.")
				return "Price is fair. Support is slow.", nil
			},
		}
		svc := NewDigestService(store, NewSummaryMerger(gen, time.Second, nil), zap.NewNop())
		svc.now = func() time.Time { return fixed }

		d, err := svc.UpdateDigest(ctx, "web", []string{"support never answered", ""})

		require.NoError(t, err)
		assert.Equal(t, "Price is fair. Support is slow.", d.Summary)
		assert.Equal(t, 3, d.ReviewCount)
		assert.Equal(t, fixed, d.UpdatedAt)
		assert.Equal(t, models.SurveySummary{Survey: "web", Summary: d.Summary, ReviewCount: 3, UpdatedAt: fixed}, saved)
	})

	t.Run("no reviews skips generation and save", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{Survey: survey, Summary: "Existing."}, true, nil
			},
		}
		gen := &mocks.MockTextGenerator{}
		svc := NewDigestService(store, NewSummaryMerger(gen, time.Second, nil), zap.NewNop())

		d, err := svc.UpdateDigest(ctx, "web", nil)

		require.NoError(t, err)
		assert.Equal(t, "Existing.", d.Summary)
		assert.Zero(t, gen.Calls)
	})

	t.Run("generation failure leaves store untouched", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{}, false, nil
			},
		}
		gen := &mocks.MockTextGenerator{
			GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("upstream 503")
			},
		}
		svc := NewDigestService(store, NewSummaryMerger(gen, time.Second, nil), zap.NewNop())

		_, err := svc.UpdateDigest(ctx, "web", []string{"nice"})

		assert.ErrorIs(t, err, ErrGenerationFailure)
	})

	t.Run("save failure", func(t *testing.T) {
		store := &mocks.MockSummaryStore{
			GetSummaryFunc: func(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
				return models.SurveySummary{}, false, nil
			},
			SaveSummaryFunc: func(ctx context.Context, rec models.SurveySummary) error {
				return errors.New("locked")
			},
		}
		gen := &mocks.MockTextGenerator{
			GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return "Nice app.", nil
			},
		}
		svc := NewDigestService(store, NewSummaryMerger(gen, time.Second, nil), zap.NewNop())

		_, err := svc.UpdateDigest(ctx, "web", []string{"nice"})

		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("concurrent updates to one survey are serialised", func(t *testing.T) {
		store := &memorySummaryStore{data: make(map[string]models.SurveySummary)}
		var genMu sync.Mutex
		gen := &mocks.MockTextGenerator{
			GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				start := strings.Index(prompt, "EXISTING SUMMARY BEGINS\n\n")
				if start < 0 {
					return "x", nil
				}
				rest := prompt[start+len("EXISTING SUMMARY BEGINS\n\n"):]
				existing := rest[:strings.Index(rest, "\n")]
				return existing + "x", nil
			},
		}
		lockedGen := &lockedGenerator{mu: &genMu, next: gen}
		svc := NewDigestService(store, NewSummaryMerger(lockedGen, time.Second, nil), zap.NewNop())

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.UpdateDigest(ctx, "web", []string{"review"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		d, err := svc.GetDigest(ctx, "web")
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", workers), d.Summary)
		assert.Equal(t, workers, d.ReviewCount)
	})
}

// lockedGenerator guards the mock's call counter when used from several goroutines.
type lockedGenerator struct {
	mu   *sync.Mutex
	next *mocks.MockTextGenerator
}

func (g *lockedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next.Generate(ctx, prompt)
}
