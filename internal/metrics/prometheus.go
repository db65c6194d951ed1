package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "basicapp"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	entityWrites     *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// NewPrometheus creates a PrometheusRecorder and registers its
// collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	p := &PrometheusRecorder{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "calls_total",
				Help:      "Total number of dispatched endpoint calls.",
			},
			[]string{"handler", "status"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "call_duration_seconds",
				Help:      "Duration of dispatched endpoint calls.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"handler"},
		),
		entityWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entity",
				Name:      "writes_total",
				Help:      "Total number of entity writes.",
			},
			[]string{"kind", "op", "outcome"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
	}

	for _, c := range []prometheus.Collector{p.dispatches, p.dispatchDuration, p.entityWrites, p.httpInFlight, p.httpRequests} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return p, nil
}

// IncDispatch increments the call counter for handler and status.
func (p *PrometheusRecorder) IncDispatch(handler string, status int) {
	p.dispatches.WithLabelValues(handler, strconv.Itoa(status)).Inc()
}

// ObserveDispatchDuration records handler duration.
func (p *PrometheusRecorder) ObserveDispatchDuration(handler string, duration time.Duration) {
	p.dispatchDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// IncEntityWrite increments the write counter.
func (p *PrometheusRecorder) IncEntityWrite(kind, op, outcome string) {
	p.entityWrites.WithLabelValues(kind, op, outcome).Inc()
}

// Instrument wraps next with HTTP request metrics. Requests are labelled
// with the matched chi route pattern rather than the raw path.
func (p *PrometheusRecorder) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		p.httpInFlight.Inc()
		defer p.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		p.httpRequests.WithLabelValues(strings.ToUpper(r.Method), routePattern(r), strconv.Itoa(rec.status)).Inc()
	})
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
