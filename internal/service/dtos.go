package service

import "time"

type Category string

const (
	Detractor Category = "detractor"
	Passive   Category = "passive"
	Promoter  Category = "promoter"
)

// Categories lists the buckets in display order.
var Categories = []Category{Detractor, Passive, Promoter}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// SurveyResponse is one respondent's answer after conversion from storage.
type SurveyResponse struct {
	ID         string
	Score      *int
	ReviewText string
	Date       time.Time
	Sentiment  Sentiment
	Aspects    []string
	Rebuy      *bool
}

type CategoryCounts struct {
	Detractors int `json:"detractors"`
	Passives   int `json:"passives"`
	Promoters  int `json:"promoters"`
}

func (c CategoryCounts) Total() int {
	return c.Detractors + c.Passives + c.Promoters
}

// PeriodShare holds the proportion of each category within one period.
type PeriodShare struct {
	Period string               `json:"period"`
	Start  time.Time            `json:"start"`
	Total  int                  `json:"total"`
	Shares map[Category]float64 `json:"shares"`
}

type RankedItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AspectRanking struct {
	Positive    []RankedItem `json:"positive"`
	NonPositive []RankedItem `json:"non_positive"`
}

type TermCloud struct {
	Positive []RankedItem `json:"positive"`
	Negative []RankedItem `json:"negative"`
}

type AggregateMetrics struct {
	TotalResponses      int            `json:"total_responses"`
	Counts              CategoryCounts `json:"counts"`
	NPSScore            float64        `json:"nps_score"`
	PeriodCategoryShare []PeriodShare  `json:"period_category_share"`
	TopAspects          AspectRanking  `json:"top_aspects"`
	TermFrequencies     TermCloud      `json:"term_frequencies"`
	RebuyShare          *float64       `json:"rebuy_share,omitempty"`
	SkippedRecords      int            `json:"skipped_records"`
	Skipped             []RecordIssue  `json:"skipped,omitempty"`
}

// ResponseFilter selects response cards. Nil bounds fall back to the full score range.
type ResponseFilter struct {
	MinScore  *int
	MaxScore  *int
	Sentiment Sentiment
}

type ResponseCard struct {
	ID        string    `json:"id,omitempty"`
	Score     int       `json:"score"`
	Category  Category  `json:"category"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Review    string    `json:"review"`
	Date      time.Time `json:"date"`
}

type Digest struct {
	Survey      string    `json:"survey"`
	Summary     string    `json:"summary"`
	ReviewCount int       `json:"review_count"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}
