// Package httpapi exposes the survey dashboard as a JSON HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterOptions struct {
	AllowedOrigins []string
	// RequestTimeout bounds every request; zero leaves requests unbounded.
	RequestTimeout time.Duration
}

// NewRouter mounts the API, health and metrics endpoints.
func NewRouter(h *Handlers, logger *zap.Logger, o RouterOptions) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	if o.RequestTimeout > 0 {
		r.Use(middleware.Timeout(o.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/surveys/{survey}", func(r chi.Router) {
		r.Get("/metrics", h.Metrics)
		r.Get("/responses", h.Responses)
		r.Get("/digest", h.Digest)
		r.Post("/digest", h.UpdateDigest)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("HTTP request failed", fields...)
				return
			}
			logger.Info("HTTP request completed", fields...)
		})
	}
}
