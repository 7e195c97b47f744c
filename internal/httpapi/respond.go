package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/godilite/nps-insights/internal/service"
)

// Envelope is the response body of every API endpoint.
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// JSON writes v as application/json with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Status:     http.StatusText(http.StatusOK),
		RequestID:  middleware.GetReqID(r.Context()),
		Data:       data,
	})
}

func respondStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Error:      msg,
		RequestID:  middleware.GetReqID(r.Context()),
	})
}

// statusFor maps service errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, context.Canceled):
		return 499, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, service.ErrInvalidFilter), errors.Is(err, service.ErrInvalidSurvey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrEmptyDataset):
		return http.StatusNotFound, "no valid responses for the survey"
	case errors.Is(err, service.ErrStorageFailure):
		return http.StatusInternalServerError, "database error"
	case errors.Is(err, service.ErrGenerationFailure):
		return http.StatusServiceUnavailable, "summary generation failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
