package models

import (
	"strings"
	"time"
)

// SurveyDocument is one stored survey answer as it comes out of a record source.
// Score is kept untyped because imported data is not trusted to be numeric.
type SurveyDocument struct {
	ID         string   `json:"id" bson:"-"`
	Score      any      `json:"score" bson:"score"`
	Review     string   `json:"review" bson:"review"`
	Date       string   `json:"date" bson:"date"`
	Sentiment  string   `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Aspects    []string `json:"aspects,omitempty" bson:"aspects,omitempty"`
	Rebuy      *bool    `json:"rebuy,omitempty" bson:"rebuy,omitempty"`
	SourceLine int      `json:"-" bson:"-"`
	// Problems lists optional fields that were present but unreadable and so left empty.
	Problems []string `json:"-" bson:"-"`
}

// SetAspectsFromString parses a stored aspect list. An unreadable list leaves Aspects
// empty and is recorded in Problems so one bad row never fails a whole read.
func (d *SurveyDocument) SetAspectsFromString(raw string) {
	aspects, err := ParseAspectList(raw)
	if err != nil {
		d.Aspects = nil
		d.Problems = append(d.Problems, "aspects: "+err.Error())
		return
	}
	d.Aspects = aspects
}

// SurveySummary is the persisted running digest of a survey's free-text reviews.
type SurveySummary struct {
	Survey      string
	Summary     string
	ReviewCount int
	UpdatedAt   time.Time
}

// ParseRebuy reads a yes/no answer. The bool result is false when raw is blank or
// not a recognised answer.
func ParseRebuy(raw string) (*bool, bool) {
	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		v = true
	case "no", "n", "false", "0":
		v = false
	default:
		return nil, false
	}
	return &v, true
}
