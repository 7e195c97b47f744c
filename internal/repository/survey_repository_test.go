package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/nps-insights/internal/repository"
	"github.com/godilite/nps-insights/internal/repository/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.EnsureSchema(context.Background(), db))
	return db
}

// asText normalises a raw TEXT column, which drivers may hand back as string or []byte.
func asText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func TestSurveyRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSurveyRepository(setupTestDB(t))
	yes := true

	docs := []models.SurveyDocument{
		{Score: 9, Review: "Fast delivery", Date: "2025-01-03", Sentiment: "positive", Aspects: []string{"Delivery", "Price"}, Rebuy: &yes},
		{Score: "n/a", Review: "meh", Date: "2025-01-04"},
		{Score: nil, Review: "", Date: ""},
	}

	n, err := repo.InsertResponses(ctx, "mobile", docs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = repo.InsertResponses(ctx, "web", []models.SurveyDocument{{Score: 1, Date: "2025-02-01"}})
	require.NoError(t, err)

	got, err := repo.ListResponses(ctx, "mobile")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "1", got[0].ID)
	assert.EqualValues(t, 9, got[0].Score)
	assert.Equal(t, "Fast delivery", got[0].Review)
	assert.Equal(t, "positive", got[0].Sentiment)
	assert.Equal(t, []string{"Delivery", "Price"}, got[0].Aspects)
	require.NotNil(t, got[0].Rebuy)
	assert.True(t, *got[0].Rebuy)

	assert.Equal(t, "n/a", asText(got[1].Score))
	assert.Nil(t, got[1].Aspects)
	assert.Nil(t, got[1].Rebuy)

	assert.Nil(t, got[2].Score)

	t.Run("unknown survey is empty", func(t *testing.T) {
		got, err := repo.ListResponses(ctx, "kiosk")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		n, err := repo.InsertResponses(ctx, "mobile", nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSurveyRepository_LegacyAspects(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := db.Exec(`INSERT INTO survey_responses (survey, score, date, aspects) VALUES ('legacy', 10, '2024-12-01', '[''Ease of use'', ''Design'']')`)
	require.NoError(t, err)

	got, err := repository.NewSurveyRepository(db).ListResponses(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Ease of use", "Design"}, got[0].Aspects)

	t.Run("one unreadable list among good rows", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO survey_responses (survey, score, date, aspects) VALUES
			('mixed', 10, '2024-12-01', '[''Speed'']'),
			('mixed', 9, '2024-12-02', '[''Fast checkout'', Support]'),
			('mixed', 3, '2024-12-03', '[''Price'']')`)
		require.NoError(t, err)

		got, err := repository.NewSurveyRepository(db).ListResponses(ctx, "mixed")

		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"Speed"}, got[0].Aspects)
		assert.Nil(t, got[1].Aspects)
		require.Len(t, got[1].Problems, 1)
		assert.Contains(t, got[1].Problems[0], "aspects")
		assert.Equal(t, []string{"Price"}, got[2].Aspects)
		assert.Empty(t, got[2].Problems)
	})
}

func TestSurveyRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("query failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, score").WithArgs("mobile").WillReturnError(errors.New("boom"))

		_, err = repository.NewSurveyRepository(db).ListResponses(ctx, "mobile")
		assert.ErrorContains(t, err, "query ListResponses")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad aspects column keeps the row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "score", "review", "date", "sentiment", "aspects", "rebuy"}).
			AddRow(int64(6), int64(10), "fine", "2025-01-01", "", "['Speed']", nil).
			AddRow(int64(7), int64(9), "ok", "2025-01-01", "", "['open", nil)
		mock.ExpectQuery("SELECT id, score").WillReturnRows(rows)

		got, err := repository.NewSurveyRepository(db).ListResponses(ctx, "mobile")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"Speed"}, got[0].Aspects)
		assert.Nil(t, got[1].Aspects)
		assert.NotEmpty(t, got[1].Problems)
	})

	t.Run("insert rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		prep := mock.ExpectPrepare("INSERT INTO survey_responses")
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WillReturnError(errors.New("constraint failed"))
		mock.ExpectRollback()

		_, err = repository.NewSurveyRepository(db).InsertResponses(ctx, "mobile", []models.SurveyDocument{
			{Score: 9, Date: "2025-01-01"},
			{Score: 3, Date: "2025-01-02"},
		})
		assert.ErrorContains(t, err, "insert row 1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSummaryRepository(setupTestDB(t))

	_, found, err := repo.GetSummary(ctx, "mobile")
	require.NoError(t, err)
	assert.False(t, found)

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveSummary(ctx, models.SurveySummary{Survey: "mobile", Summary: "Fast.", ReviewCount: 2, UpdatedAt: first}))

	got, found, err := repo.GetSummary(ctx, "mobile")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.SurveySummary{Survey: "mobile", Summary: "Fast.", ReviewCount: 2, UpdatedAt: first}, got)

	second := first.Add(time.Hour)
	require.NoError(t, repo.SaveSummary(ctx, models.SurveySummary{Survey: "mobile", Summary: "Fast. Pricey.", ReviewCount: 5, UpdatedAt: second}))

	got, _, err = repo.GetSummary(ctx, "mobile")
	require.NoError(t, err)
	assert.Equal(t, "Fast. Pricey.", got.Summary)
	assert.Equal(t, 5, got.ReviewCount)
	assert.True(t, second.Equal(got.UpdatedAt))
}
