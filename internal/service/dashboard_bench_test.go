package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/godilite/nps-insights/internal/repository"
	"github.com/godilite/nps-insights/internal/repository/models"
	dbbuilder "github.com/godilite/nps-insights/pkg/database"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func setupRealDB(tb testing.TB, rows int) *repository.SurveyRepository {
	tb.Helper()

	db, err := dbbuilder.New(context.Background(),
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
		dbbuilder.WithMaxOpenConns(1),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	repo := repository.NewSurveyRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		tb.Fatalf("failed to create schema: %v", err)
	}

	sentiments := []string{"positive", "neutral", "negative"}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]models.SurveyDocument, rows)
	for i := range docs {
		docs[i] = models.SurveyDocument{
			Score:     i % 11,
			Review:    fmt.Sprintf("review %d mentions delivery speed and pricing", i),
			Date:      start.AddDate(0, 0, i%120).Format("2006-01-02"),
			Sentiment: sentiments[i%3],
			Aspects:   []string{"Delivery", "Price"}[:1+i%2],
		}
	}
	if _, err := repo.InsertResponses(context.Background(), "bench", docs); err != nil {
		tb.Fatalf("failed to seed db: %v", err)
	}
	return repo
}

func BenchmarkGetMetrics(b *testing.B) {
	svc := NewDashboardService(setupRealDB(b, 2000), NewAggregator(), zap.NewNop())

	b.ReportAllocs()

	for b.Loop() {
		_, _ = svc.GetMetrics(context.Background(), "bench")
	}
}

func BenchmarkAggregate(b *testing.B) {
	responses := make([]SurveyResponse, 5000)
	for i := range responses {
		responses[i] = SurveyResponse{
			Score:      intp(i % 11),
			Date:       time.Date(2025, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC),
			Sentiment:  SentimentPositive,
			Aspects:    []string{"Price"},
			ReviewText: "Quick delivery and friendly support team",
		}
	}
	a := NewAggregator()

	b.ReportAllocs()

	for b.Loop() {
		_, _ = a.Aggregate(responses)
	}
}
