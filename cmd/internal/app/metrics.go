package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instrumentation for the HTTP surface.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginFailures   prometheus.Counter
}

// NewMetrics builds a registry with process, Go runtime and HTTP collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Rejected credential checks.",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.loginFailures)
	return m
}

// LoginFailures is the counter handed to the auth handler.
func (m *Metrics) LoginFailures() prometheus.Counter {
	return m.loginFailures
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithMetrics records request counts and latency around next.
func (m *Metrics) WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(lrw, r)

		m.requestsTotal.WithLabelValues(r.Method, strconv.Itoa(lrw.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
