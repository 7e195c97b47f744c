package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var (
	vOnce    sync.Once
	validate *validator.Validate
)

// validatorInstance returns the shared validator, reporting fields by their json or query tag.
func validatorInstance() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"query", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		validate = v
	})
	return validate
}

// ValidationError is returned when a request fails binding or validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+" "+msg)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return "failed " + fe.Tag()
	}
}

type responsesQuery struct {
	MinScore  *int   `query:"min_score" validate:"omitempty,min=0,max=10"`
	MaxScore  *int   `query:"max_score" validate:"omitempty,min=0,max=10"`
	Sentiment string `query:"sentiment" validate:"omitempty,oneof=positive neutral negative"`
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{name: "must be an integer"}}
	}
	return &n, nil
}

func bindResponsesQuery(r *http.Request) (responsesQuery, error) {
	var q responsesQuery
	var err error
	if q.MinScore, err = optionalInt(r, "min_score"); err != nil {
		return q, err
	}
	if q.MaxScore, err = optionalInt(r, "max_score"); err != nil {
		return q, err
	}
	q.Sentiment = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sentiment")))
	return q, validateStruct(q)
}

type digestRequest struct {
	Reviews []string `json:"reviews" validate:"required,max=1000"`
}

// bindJSON decodes a single JSON object, rejecting unknown fields, then validates it.
func bindJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Fields: map[string]string{"body": fmt.Sprintf("is not valid JSON: %v", err)}}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &ValidationError{Fields: map[string]string{"body": "must contain a single JSON object"}}
	}
	return validateStruct(dst)
}
