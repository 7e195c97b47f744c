// Package metrics provides Prometheus metrics for the NPS insights service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NPSScore exposes the latest computed NPS per survey.
	NPSScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nps",
			Name:      "score",
			Help:      "Most recently computed Net Promoter Score",
		},
		[]string{"survey"},
	)

	// SkippedRecords exposes how many malformed records the last aggregation skipped.
	SkippedRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nps",
			Name:      "skipped_records",
			Help:      "Malformed survey records skipped by the last aggregation",
		},
		[]string{"survey"},
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nps",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of load and aggregation in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"survey"},
	)

	// LLMRequestsTotal counts text generation calls by provider and outcome.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nps",
			Name:      "llm_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nps",
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of text generation requests in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)

	// DigestUpdatesTotal counts digest merges by outcome.
	DigestUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nps",
			Name:      "digest_updates_total",
			Help:      "Total number of summary digest updates",
		},
		[]string{"mode", "status"},
	)
)
