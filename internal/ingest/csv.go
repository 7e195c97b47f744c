// Package ingest loads survey exports into a response store.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/godilite/nps-insights/internal/repository/models"
)

type Field string

const (
	FieldScore     Field = "score"
	FieldReview    Field = "review"
	FieldDate      Field = "date"
	FieldSentiment Field = "sentiment"
	FieldAspects   Field = "aspects"
	FieldRebuy     Field = "rebuy"
)

// AllFields lists every field a row can carry.
var AllFields = []Field{FieldScore, FieldReview, FieldDate, FieldSentiment, FieldAspects, FieldRebuy}

// columnAliases maps export header names onto fields.
var columnAliases = map[string]Field{
	"score":        FieldScore,
	"nps-score":    FieldScore,
	"nps_score":    FieldScore,
	"review":       FieldReview,
	"review_text":  FieldReview,
	"date":         FieldDate,
	"sentiment":    FieldSentiment,
	"aspects":      FieldAspects,
	"checkbox_fts": FieldAspects,
	"rebuy":        FieldRebuy,
}

var (
	ErrNoHeader     = errors.New("csv has no header row")
	ErrNoScore      = errors.New("csv has no score column")
	ErrUnknownField = errors.New("unknown field")
)

// RowError describes a row that could not be read.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseFields turns a comma separated field list into fields. Empty input selects all.
func ParseFields(raw string) ([]Field, error) {
	if strings.TrimSpace(raw) == "" {
		return AllFields, nil
	}
	var out []Field
	seen := map[Field]bool{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		f, ok := columnAliases[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Reader reads survey rows from a CSV export with a header line.
type Reader struct {
	fields []Field
	logger *zap.Logger
}

func NewReader(fields []Field, logger *zap.Logger) *Reader {
	if len(fields) == 0 {
		fields = AllFields
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{fields: fields, logger: logger}
}

// Read returns the accepted rows and the rows rejected for a column count mismatch.
// Cell values are kept raw; a malformed score is stored as-is and reported later by aggregation.
func (r *Reader) Read(in io.Reader) ([]models.SurveyDocument, []RowError, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := r.mapColumns(header)
	if _, ok := columns[FieldScore]; !ok {
		return nil, nil, ErrNoScore
	}

	var (
		docs     []models.SurveyDocument
		rejected []RowError
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rejected = append(rejected, RowError{Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(header) {
			rejected = append(rejected, RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(header), len(record)),
			})
			continue
		}
		docs = append(docs, r.document(record, columns, line))
	}

	if len(rejected) > 0 {
		r.logger.Warn("rejected csv rows", zap.Int("rejected", len(rejected)), zap.Int("first_line", rejected[0].Line))
	}
	return docs, rejected, nil
}

func (r *Reader) mapColumns(header []string) map[Field]int {
	wanted := make(map[Field]bool, len(r.fields))
	for _, f := range r.fields {
		wanted[f] = true
	}
	columns := make(map[Field]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		f, ok := columnAliases[name]
		if !ok || !wanted[f] {
			continue
		}
		if _, dup := columns[f]; !dup {
			columns[f] = i
		}
	}
	return columns
}

func (r *Reader) document(record []string, columns map[Field]int, line int) models.SurveyDocument {
	cell := func(f Field) string {
		i, ok := columns[f]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	doc := models.SurveyDocument{
		Score:      rawScore(cell(FieldScore)),
		Review:     cell(FieldReview),
		Date:       cell(FieldDate),
		Sentiment:  strings.ToLower(cell(FieldSentiment)),
		SourceLine: line,
	}
	if raw := cell(FieldAspects); raw != "" {
		aspects, err := models.ParseAspectList(raw)
		if err != nil {
			r.logger.Warn("unparseable aspects", zap.Int("line", line), zap.Error(err))
		}
		doc.Aspects = aspects
	}
	if raw := cell(FieldRebuy); raw != "" {
		if rebuy, ok := models.ParseRebuy(raw); ok {
			doc.Rebuy = rebuy
		}
	}
	return doc
}

// rawScore stores integers natively and anything else verbatim.
func rawScore(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
