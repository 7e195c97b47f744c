// Package cachekey names the cache entries shared by the gRPC and HTTP transports.
package cachekey

import (
	"fmt"

	"github.com/godilite/nps-insights/internal/service"
)

type Kind string

const (
	KindMetrics   Kind = "metrics"
	KindResponses Kind = "responses"
	KindDigest    Kind = "digest"
)

func Metrics(survey string) string {
	return fmt.Sprintf("%s:%s", KindMetrics, survey)
}

// Responses keys a filtered card list by its normalised bounds.
func Responses(survey string, lo, hi int, sentiment service.Sentiment) string {
	return fmt.Sprintf("%s:%s:%d:%d:%s", KindResponses, survey, lo, hi, sentiment)
}

// ResponsesPattern matches every filtered card list of a survey. Survey names never
// contain glob characters.
func ResponsesPattern(survey string) string {
	return fmt.Sprintf("%s:%s:*", KindResponses, survey)
}

func Digest(survey string) string {
	return fmt.Sprintf("%s:%s", KindDigest, survey)
}
