package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flaskbasic/basicapp/internal/metrics"
)

// MetricsHandler exposes Prometheus metrics.
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler creates a new MetricsHandler. A nil gatherer makes
// the endpoint answer 503.
func NewMetricsHandler(gatherer prometheus.Gatherer) *MetricsHandler {
	h := &MetricsHandler{}
	if gatherer != nil {
		h.exposition = metrics.Handler(gatherer)
	}
	return h
}

// Metrics returns metrics in Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
