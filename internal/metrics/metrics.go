// Package metrics defines the Prometheus collectors for the counter server
// and exposes an HTTP handler for scraping.
//
// Each Metrics value owns its registry, so several servers (or tests) can
// live in one process without duplicate-registration panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the server.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PageviewsTotal       *prometheus.CounterVec
	CounterWritesTotal   *prometheus.CounterVec
	StoreErrorsTotal     *prometheus.CounterVec

	registry   *prometheus.Registry
	scrapePath string
}

// DefaultScrapePath is where the scrape endpoint is mounted unless overridden.
const DefaultScrapePath = "/metrics"

// Option configures a Metrics.
type Option func(*Metrics)

// WithScrapePath names the path the scrape endpoint is mounted on, so its
// requests are labelled with that path.
func WithScrapePath(path string) Option {
	return func(m *Metrics) {
		if path != "" {
			m.scrapePath = path
		}
	}
}

// Write outcomes recorded in CounterWritesTotal.
const (
	WriteOK           = "ok"
	WriteUnauthorized = "unauthorized"
	WriteInvalid      = "invalid"
	WriteError        = "error"
)

// New creates and registers all Prometheus metrics.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		scrapePath: DefaultScrapePath,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PageviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageviews_total",
				Help: "Landing page views written to the pageview log.",
			},
			[]string{"path"},
		),
		CounterWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_writes_total",
				Help: "POST /api/set attempts by outcome (ok, unauthorized, invalid, error).",
			},
			[]string{"result"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_errors_total",
				Help: "Storage failures by operation.",
			},
			[]string{"op"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PageviewsTotal,
		m.CounterWritesTotal,
		m.StoreErrorsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePageview implements pageview.Observer.
func (m *Metrics) ObservePageview(path string) {
	m.PageviewsTotal.WithLabelValues(path).Inc()
}

// ObserveWrite records the outcome of a counter write.
func (m *Metrics) ObserveWrite(result string) {
	m.CounterWritesTotal.WithLabelValues(result).Inc()
}

// ObserveStoreError records a failed storage operation.
func (m *Metrics) ObserveStoreError(op string) {
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}

// Middleware returns middleware that records HTTP request count, latency, and
// in-flight gauge.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := m.normalizePath(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// normalizePath collapses static asset paths into one label so arbitrary
// URLs cannot blow up label cardinality.
func (m *Metrics) normalizePath(path string) string {
	if path == m.scrapePath {
		return path
	}
	switch path {
	case "/", "/index.html", "/api/today", "/api/history", "/api/set", "/health", "/health/ready":
		return path
	default:
		return "static"
	}
}
