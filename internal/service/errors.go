package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrGenerationFailure = errors.New("text generation failure")
	ErrStorageFailure    = errors.New("storage failure")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidSurvey     = errors.New("invalid survey name")
)

// RecordIssue describes a response that was skipped during aggregation.
type RecordIssue struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (r RecordIssue) Error() string {
	if r.ID != "" {
		return fmt.Sprintf("%s: record %d (%s): %s", ErrMalformedRecord, r.Index, r.ID, r.Reason)
	}
	return fmt.Sprintf("%s: record %d: %s", ErrMalformedRecord, r.Index, r.Reason)
}

func (r RecordIssue) Unwrap() error { return ErrMalformedRecord }
