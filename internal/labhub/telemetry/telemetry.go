// Package telemetry exposes the gateway's Prometheus metrics: HTTP traffic
// by route and status, and lab session lifecycle counters.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cvelabhub/labhub/internal/common/httpx"
)

// Metrics holds the gateway's instrument set backed by one registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec

	sessionsActive  prometheus.Gauge
	sessionStarts   prometheus.Counter
	sessionExtends  prometheus.Counter
	sessionExpiries prometheus.Counter
}

// New creates the instrument set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labhub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method, and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labhub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labhub",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of backend and analysis service calls by path.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"path"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labhub",
			Name:      "lab_sessions_active",
			Help:      "Lab sessions currently in the ready state.",
		}),
		sessionStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labhub",
			Name:      "lab_session_starts_total",
			Help:      "Lab sessions started.",
		}),
		sessionExtends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labhub",
			Name:      "lab_session_extends_total",
			Help:      "Successful lab session extends.",
		}),
		sessionExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labhub",
			Name:      "lab_session_expiries_total",
			Help:      "Lab sessions terminated by TTL expiry.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.upstreamDuration,
		m.sessionsActive,
		m.sessionStarts,
		m.sessionExtends,
		m.sessionExpiries,
	)
	return m
}

// Handler returns the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per chi route pattern, so
// /api/v1/labs/{sessionID}/extend stays one series regardless of the uuid.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := httpx.NewResponseWriter(w)
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(routePattern, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(routePattern, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveUpstream records the latency of one upstream call.
func (m *Metrics) ObserveUpstream(path string, d time.Duration) {
	m.upstreamDuration.WithLabelValues(path).Observe(d.Seconds())
}

// SessionStarted records a session start and bumps the active gauge.
func (m *Metrics) SessionStarted() {
	m.sessionStarts.Inc()
	m.sessionsActive.Inc()
}

// SessionExtended records a successful extend.
func (m *Metrics) SessionExtended() {
	m.sessionExtends.Inc()
}

// SessionEnded records a session leaving the ready state. expired is true
// when the TTL countdown, not the user, terminated it.
func (m *Metrics) SessionEnded(expired bool) {
	m.sessionsActive.Dec()
	if expired {
		m.sessionExpiries.Inc()
	}
}
