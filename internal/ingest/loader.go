package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/nps-insights/internal/repository/models"
	"github.com/godilite/nps-insights/internal/service"
)

const insertTimeout = 2 * time.Minute

// Sink is a response store that accepts a batch of raw documents.
type Sink interface {
	InsertResponses(ctx context.Context, survey string, docs []models.SurveyDocument) (int, error)
}

type Report struct {
	Survey   string     `json:"survey"`
	Read     int        `json:"read"`
	Inserted int        `json:"inserted"`
	Rejected []RowError `json:"rejected,omitempty"`
}

type Loader struct {
	sink   Sink
	reader *Reader
	logger *zap.Logger
}

func NewLoader(sink Sink, reader *Reader, logger *zap.Logger) *Loader {
	if sink == nil {
		panic("nil Sink provided to NewLoader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reader == nil {
		reader = NewReader(nil, logger)
	}
	return &Loader{sink: sink, reader: reader, logger: logger.Named("ingest")}
}

// Load reads a CSV export and inserts every accepted row in one batch.
func (l *Loader) Load(ctx context.Context, survey string, in io.Reader) (Report, error) {
	report := Report{Survey: survey}
	if err := service.ValidateSurvey(survey); err != nil {
		return report, err
	}

	docs, rejected, err := l.reader.Read(in)
	if err != nil {
		return report, err
	}
	report.Read = len(docs) + len(rejected)
	report.Rejected = rejected

	if len(docs) == 0 {
		l.logger.Warn("nothing to insert", zap.String("survey", survey), zap.Int("rejected", len(rejected)))
		return report, nil
	}

	insCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	n, err := l.sink.InsertResponses(insCtx, survey, docs)
	if err != nil {
		return report, fmt.Errorf("%w: %v", service.ErrStorageFailure, err)
	}
	report.Inserted = n

	l.logger.Info("survey responses loaded",
		zap.String("survey", survey),
		zap.Int("inserted", n),
		zap.Int("rejected", len(rejected)))
	return report, nil
}
