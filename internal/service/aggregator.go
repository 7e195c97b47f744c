package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	maxScore              = 10
	passiveFloor          = 7
	promoterFloor         = 9
	defaultTopAspects     = 5
	defaultTopTerms       = 25
	defaultDetractorFloor = 0
)

// Granularity selects the calendar bucket used for period shares.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity maps a config value onto a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	case "":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("unknown period granularity %q", s)
	}
}

type AggregatorOption func(*Aggregator)

// WithDetractorFloor sets the lowest score counted as a detractor. Canonical NPS uses 0;
// some survey tools start their scale at 1.
func WithDetractorFloor(floor int) AggregatorOption {
	return func(a *Aggregator) { a.detractorFloor = floor }
}

func WithGranularity(g Granularity) AggregatorOption {
	return func(a *Aggregator) { a.granularity = g }
}

func WithTopAspects(n int) AggregatorOption {
	return func(a *Aggregator) { a.topAspects = n }
}

func WithTopTerms(n int) AggregatorOption {
	return func(a *Aggregator) { a.topTerms = n }
}

// Aggregator turns a batch of survey responses into NPS metrics.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	detractorFloor int
	granularity    Granularity
	topAspects     int
	topTerms       int
}

// NewAggregator creates an Aggregator with canonical NPS bands and monthly periods.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		detractorFloor: defaultDetractorFloor,
		granularity:    GranularityMonth,
		topAspects:     defaultTopAspects,
		topTerms:       defaultTopTerms,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.detractorFloor < 0 || a.detractorFloor >= passiveFloor {
		a.detractorFloor = defaultDetractorFloor
	}
	if a.granularity == "" {
		a.granularity = GranularityMonth
	}
	return a
}

// Assignments maps each input response, by index, to its category.
// Skipped responses have an empty category and a matching entry in Issues.
type Assignments struct {
	Categories []Category
	Issues     []RecordIssue
}

func (a Assignments) valid(i int) bool {
	return i < len(a.Categories) && a.Categories[i] != ""
}

// Aggregate computes all metrics for responses. When every record is malformed the
// returned metrics still carry the skipped-record report alongside ErrEmptyDataset.
func (a *Aggregator) Aggregate(responses []SurveyResponse) (AggregateMetrics, error) {
	if len(responses) == 0 {
		return AggregateMetrics{}, ErrEmptyDataset
	}

	asg := a.Categorize(responses)
	counts := ComputeCounts(asg)

	metrics := AggregateMetrics{
		TotalResponses: len(responses),
		Counts:         counts,
		SkippedRecords: len(asg.Issues),
		Skipped:        asg.Issues,
	}

	if counts.Total() == 0 {
		return metrics, fmt.Errorf("%w: all %d records are malformed", ErrEmptyDataset, len(responses))
	}
	// Skipped records stay in the denominator.
	nps, err := ComputeNPS(counts, len(responses))
	if err != nil {
		return metrics, err
	}

	metrics.NPSScore = nps
	metrics.PeriodCategoryShare = ComputePeriodDistribution(responses, asg, a.granularity)
	metrics.TopAspects = ComputeTopAspects(responses, asg, a.topAspects)
	metrics.TermFrequencies = ComputeTermFrequencies(responses, asg, a.topTerms)
	metrics.RebuyShare = ComputeRebuyShare(responses, asg)
	return metrics, nil
}

// CategoryFor returns the bucket of a score, or false if the score is out of range.
func (a *Aggregator) CategoryFor(score int) (Category, bool) {
	switch {
	case score < a.detractorFloor || score > maxScore:
		return "", false
	case score >= promoterFloor:
		return Promoter, true
	case score >= passiveFloor:
		return Passive, true
	default:
		return Detractor, true
	}
}

// Categorize assigns every well-formed response to exactly one category.
func (a *Aggregator) Categorize(responses []SurveyResponse) Assignments {
	asg := Assignments{Categories: make([]Category, len(responses))}

	for i, r := range responses {
		reason := ""
		switch {
		case r.Score == nil:
			reason = "missing or non-numeric score"
		default:
			cat, ok := a.CategoryFor(*r.Score)
			if !ok {
				reason = fmt.Sprintf("score %d outside [%d,%d]", *r.Score, a.detractorFloor, maxScore)
				break
			}
			asg.Categories[i] = cat
		}
		if reason != "" {
			asg.Issues = append(asg.Issues, RecordIssue{Index: i, ID: r.ID, Reason: reason})
		}
	}
	return asg
}

func ComputeCounts(asg Assignments) CategoryCounts {
	var c CategoryCounts
	for _, cat := range asg.Categories {
		switch cat {
		case Detractor:
			c.Detractors++
		case Passive:
			c.Passives++
		case Promoter:
			c.Promoters++
		}
	}
	return c
}

// ComputeNPS returns the percentage of promoters minus detractors, rounded to 2 places.
func ComputeNPS(counts CategoryCounts, total int) (float64, error) {
	if total <= 0 {
		return 0, ErrEmptyDataset
	}
	return round2(float64(counts.Promoters-counts.Detractors) / float64(total) * 100), nil
}

// ComputePeriodDistribution returns, per period in chronological order, the share of
// each category present in that period. Undated responses are left out.
func ComputePeriodDistribution(responses []SurveyResponse, asg Assignments, g Granularity) []PeriodShare {
	type bucket struct {
		start  time.Time
		total  int
		counts map[Category]int
	}
	buckets := make(map[string]*bucket)

	for i, r := range responses {
		if !asg.valid(i) || r.Date.IsZero() {
			continue
		}
		label, start := periodOf(r.Date, g)
		b, ok := buckets[label]
		if !ok {
			b = &bucket{start: start, counts: make(map[Category]int)}
			buckets[label] = b
		}
		b.total++
		b.counts[asg.Categories[i]]++
	}

	out := make([]PeriodShare, 0, len(buckets))
	for label, b := range buckets {
		shares := make(map[Category]float64, len(b.counts))
		for cat, n := range b.counts {
			shares[cat] = float64(n) / float64(b.total)
		}
		out = append(out, PeriodShare{Period: label, Start: b.start, Total: b.total, Shares: shares})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func periodOf(d time.Time, g Granularity) (string, time.Time) {
	switch g {
	case GranularityDay:
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01-02"), start
	case GranularityWeek:
		year, week := d.ISOWeek()
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return fmt.Sprintf("%04d-W%02d", year, week), day.AddDate(0, 0, -offset)
	default:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01"), start
	}
}

// ComputeTopAspects ranks selected aspects for positive and for neutral-or-negative
// responses. Responses without a sentiment label belong to neither group.
func ComputeTopAspects(responses []SurveyResponse, asg Assignments, n int) AspectRanking {
	pos, neg := newRankCounter(), newRankCounter()
	for i, r := range responses {
		if !asg.valid(i) {
			continue
		}
		var c *rankCounter
		switch r.Sentiment {
		case SentimentPositive:
			c = pos
		case SentimentNeutral, SentimentNegative:
			c = neg
		default:
			continue
		}
		for _, a := range r.Aspects {
			if a = strings.TrimSpace(a); a != "" {
				c.add(a)
			}
		}
	}
	return AspectRanking{Positive: pos.top(n), NonPositive: neg.top(n)}
}

// ComputeRebuyShare returns the rounded percentage of answering respondents who would
// buy again, or nil when nobody answered.
func ComputeRebuyShare(responses []SurveyResponse, asg Assignments) *float64 {
	answered, yes := 0, 0
	for i, r := range responses {
		if !asg.valid(i) || r.Rebuy == nil {
			continue
		}
		answered++
		if *r.Rebuy {
			yes++
		}
	}
	if answered == 0 {
		return nil
	}
	share := math.Round(100 * float64(yes) / float64(answered))
	return &share
}

// rankCounter counts occurrences and remembers first-seen order for stable ties.
type rankCounter struct {
	order  []string
	counts map[string]int
}

func newRankCounter() *rankCounter {
	return &rankCounter{counts: make(map[string]int)}
}

func (c *rankCounter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *rankCounter) top(n int) []RankedItem {
	if n < 0 {
		n = 0
	}
	out := make([]RankedItem, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, RankedItem{Name: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
