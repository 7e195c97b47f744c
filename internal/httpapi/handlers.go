package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/godilite/nps-insights/internal/cachekey"
	"github.com/godilite/nps-insights/internal/service"
	"github.com/godilite/nps-insights/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultReadTimeout   = 10 * time.Second
)

// Handlers serves the dashboard over HTTP. Reads share the read-through cache with gRPC.
type Handlers struct {
	dashboard DashboardService
	digests   DigestService
	cache     *cache.ReadThrough
	logger    *zap.Logger
}

func NewHandlers(dashboard DashboardService, digests DigestService, rt *cache.ReadThrough, logger *zap.Logger) *Handlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewHandlers")
	}
	if digests == nil {
		panic("nil DigestService provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt == nil {
		rt = cache.NewReadThrough(cache.Noop{}, defaultCacheDuration, logger)
	}
	return &Handlers{
		dashboard: dashboard,
		digests:   digests,
		cache:     rt,
		logger:    logger.Named("http-handler"),
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	fields := []zap.Field{zap.String("op", op), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}
	respondStatus(w, r, status, msg)
}

func surveyParam(r *http.Request) (string, error) {
	survey := chi.URLParam(r, "survey")
	return survey, service.ValidateSurvey(survey)
}

func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	survey, err := surveyParam(r)
	if err != nil {
		h.fail(w, r, "GetMetrics", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultReadTimeout)
	defer cancel()

	m, err := cache.FindAndCache(ctx, h.cache, cachekey.Metrics(survey), func(fetchCtx context.Context) (service.AggregateMetrics, error) {
		return h.dashboard.GetMetrics(fetchCtx, survey)
	})
	if err != nil {
		h.fail(w, r, "GetMetrics", err)
		return
	}
	respondOK(w, r, m)
}

type responsesPayload struct {
	Survey    string                 `json:"survey"`
	Responses []service.ResponseCard `json:"responses"`
}

func (h *Handlers) Responses(w http.ResponseWriter, r *http.Request) {
	survey, err := surveyParam(r)
	if err != nil {
		h.fail(w, r, "ListResponses", err)
		return
	}
	q, err := bindResponsesQuery(r)
	if err != nil {
		h.fail(w, r, "ListResponses", err)
		return
	}

	f := service.ResponseFilter{MinScore: q.MinScore, MaxScore: q.MaxScore, Sentiment: service.Sentiment(q.Sentiment)}
	lo, hi, err := service.ValidateFilter(f)
	if err != nil {
		h.fail(w, r, "ListResponses", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultReadTimeout)
	defer cancel()

	cards, err := cache.FindAndCache(ctx, h.cache, cachekey.Responses(survey, lo, hi, f.Sentiment), func(fetchCtx context.Context) ([]service.ResponseCard, error) {
		return h.dashboard.FilterResponses(fetchCtx, survey, f)
	})
	if err != nil {
		h.fail(w, r, "ListResponses", err)
		return
	}
	if cards == nil {
		cards = []service.ResponseCard{}
	}
	respondOK(w, r, responsesPayload{Survey: survey, Responses: cards})
}

func (h *Handlers) Digest(w http.ResponseWriter, r *http.Request) {
	survey, err := surveyParam(r)
	if err != nil {
		h.fail(w, r, "GetDigest", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultReadTimeout)
	defer cancel()

	d, err := cache.FindAndCache(ctx, h.cache, cachekey.Digest(survey), func(fetchCtx context.Context) (service.Digest, error) {
		return h.digests.GetDigest(fetchCtx, survey)
	})
	if err != nil {
		h.fail(w, r, "GetDigest", err)
		return
	}
	respondOK(w, r, d)
}

func (h *Handlers) UpdateDigest(w http.ResponseWriter, r *http.Request) {
	survey, err := surveyParam(r)
	if err != nil {
		h.fail(w, r, "UpdateDigest", err)
		return
	}
	var body digestRequest
	if err := bindJSON(w, r, &body); err != nil {
		h.fail(w, r, "UpdateDigest", err)
		return
	}

	d, err := h.digests.UpdateDigest(r.Context(), survey, body.Reviews)
	if err != nil {
		h.fail(w, r, "UpdateDigest", err)
		return
	}
	cache.Put(r.Context(), h.cache, cachekey.Digest(survey), d)
	respondOK(w, r, d)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, map[string]string{"status": "ok"})
}
