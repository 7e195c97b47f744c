package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/godilite/nps-insights/internal/repository/models"
)

type SurveyRepository struct {
	db *sql.DB
}

func NewSurveyRepository(db *sql.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (s *SurveyRepository) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.db)
}

// ListResponses returns every stored response of a survey in insertion order.
func (s *SurveyRepository) ListResponses(ctx context.Context, survey string) ([]models.SurveyDocument, error) {
	const query = `
		SELECT id, score, review, date, sentiment, aspects, rebuy
		FROM survey_responses
		WHERE survey = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, survey)
	if err != nil {
		return nil, fmt.Errorf("query ListResponses: %w", err)
	}
	defer rows.Close()

	var results []models.SurveyDocument
	for rows.Next() {
		var (
			d       models.SurveyDocument
			id      int64
			aspects string
			rebuy   sql.NullBool
		)
		if err := rows.Scan(&id, &d.Score, &d.Review, &d.Date, &d.Sentiment, &aspects, &rebuy); err != nil {
			return nil, fmt.Errorf("scan ListResponses row: %w", err)
		}
		d.ID = strconv.FormatInt(id, 10)
		d.SetAspectsFromString(aspects)
		if rebuy.Valid {
			v := rebuy.Bool
			d.Rebuy = &v
		}
		results = append(results, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListResponses: %w", err)
	}
	return results, nil
}

// InsertResponses stores docs for a survey in a single transaction.
func (s *SurveyRepository) InsertResponses(ctx context.Context, survey string, docs []models.SurveyDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin InsertResponses: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO survey_responses (survey, score, review, date, sentiment, aspects, rebuy)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare InsertResponses: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		aspects, err := json.Marshal(nonNil(d.Aspects))
		if err != nil {
			return 0, fmt.Errorf("encode aspects of row %d: %w", i, err)
		}
		var rebuy any
		if d.Rebuy != nil {
			rebuy = *d.Rebuy
		}
		if _, err := stmt.ExecContext(ctx, survey, d.Score, d.Review, d.Date, d.Sentiment, string(aspects), rebuy); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit InsertResponses: %w", err)
	}
	return len(docs), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
