package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/nps-insights/internal/repository/models"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"01/02/2006",
}

// ParseResponseDate parses the date formats seen in survey exports.
func ParseResponseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceScore converts a stored score to an integer. Integral floats and numeric
// strings are accepted; anything else yields nil.
func CoerceScore(v any) *int {
	var f float64
	switch s := v.(type) {
	case nil:
		return nil
	case int:
		return &s
	case int32:
		n := int(s)
		return &n
	case int64:
		n := int(s)
		return &n
	case float32:
		f = float64(s)
	case float64:
		f = s
	case []byte:
		return CoerceScore(string(s))
	case string:
		t := strings.TrimSpace(s)
		if n, err := strconv.Atoi(t); err == nil {
			return &n
		}
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// ResponsesFromDocuments converts stored documents without dropping any of them;
// fields that fail conversion are left empty for the Aggregator to report.
func ResponsesFromDocuments(docs []models.SurveyDocument) []SurveyResponse {
	out := make([]SurveyResponse, len(docs))
	for i, d := range docs {
		date, _ := ParseResponseDate(d.Date)
		out[i] = SurveyResponse{
			ID:         d.ID,
			Score:      CoerceScore(d.Score),
			ReviewText: d.Review,
			Date:       date,
			Sentiment:  normalizeSentiment(d.Sentiment),
			Aspects:    d.Aspects,
			Rebuy:      d.Rebuy,
		}
	}
	return out
}

func normalizeSentiment(s string) Sentiment {
	sent := Sentiment(strings.ToLower(strings.TrimSpace(s)))
	if !sent.Valid() {
		return ""
	}
	return sent
}
