package service

import (
	"testing"
	"time"

	"github.com/godilite/nps-insights/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *int
	}{
		{"int", 7, intp(7)},
		{"int64", int64(9), intp(9)},
		{"int32", int32(3), intp(3)},
		{"integral float", 10.0, intp(10)},
		{"float32", float32(4), intp(4)},
		{"fractional float", 7.5, nil},
		{"numeric string", " 8 ", intp(8)},
		{"float string", "6.0", intp(6)},
		{"bytes", []byte("5"), intp(5)},
		{"text", "ten", nil},
		{"empty string", "", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceScore(tt.in))
		})
	}
}

func TestParseResponseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2024-03-05", "2024/03/05", "05-03-2024", "03/05/2024"} {
		got, ok := ParseResponseDate(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := ParseResponseDate("2024-03-05T14:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, 14, got.Hour())

	_, ok = ParseResponseDate("")
	assert.False(t, ok)
	_, ok = ParseResponseDate("yesterday")
	assert.False(t, ok)
}

func TestResponsesFromDocuments(t *testing.T) {
	docs := []models.SurveyDocument{
		{ID: "1", Score: int64(9), Review: "great", Date: "2024-03-05", Sentiment: "Positive", Aspects: []string{"Price"}, Rebuy: boolp(true)},
		{ID: "2", Score: "n/a", Date: "not a date", Sentiment: "angry"},
	}

	got := ResponsesFromDocuments(docs)

	require.Len(t, got, 2)
	assert.Equal(t, intp(9), got[0].Score)
	assert.Equal(t, SentimentPositive, got[0].Sentiment)
	assert.Equal(t, []string{"Price"}, got[0].Aspects)
	assert.Equal(t, "great", got[0].ReviewText)
	assert.False(t, got[0].Date.IsZero())
	assert.True(t, *got[0].Rebuy)

	assert.Equal(t, "2", got[1].ID)
	assert.Nil(t, got[1].Score)
	assert.True(t, got[1].Date.IsZero())
	assert.Equal(t, Sentiment(""), got[1].Sentiment)
}
