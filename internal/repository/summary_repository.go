package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/nps-insights/internal/repository/models"
)

type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// GetSummary returns the digest of a survey; the bool is false when none was saved yet.
func (s *SummaryRepository) GetSummary(ctx context.Context, survey string) (models.SurveySummary, bool, error) {
	const query = `
		SELECT survey, summary, review_count, updated_at
		FROM survey_summaries
		WHERE survey = ?
	`

	var (
		rec       models.SurveySummary
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, query, survey).Scan(&rec.Survey, &rec.Summary, &rec.ReviewCount, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SurveySummary{}, false, nil
		}
		return models.SurveySummary{}, false, fmt.Errorf("query GetSummary: %w", err)
	}

	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return models.SurveySummary{}, false, fmt.Errorf("parse updated_at of %q: %w", survey, err)
	}
	return rec, true, nil
}

// SaveSummary inserts or replaces the digest of a survey.
func (s *SummaryRepository) SaveSummary(ctx context.Context, rec models.SurveySummary) error {
	const query = `
		INSERT INTO survey_summaries (survey, summary, review_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (survey) DO UPDATE SET
			summary = excluded.summary,
			review_count = excluded.review_count,
			updated_at = excluded.updated_at
	`

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query, rec.Survey, rec.Summary, rec.ReviewCount, updatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("exec SaveSummary: %w", err)
	}
	return nil
}
