// Package metrics exposes request and upstream call metrics to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New registers the collectors on a registry of their own.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of response latency (seconds) for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		upstreamTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Total number of requests sent to upstream stores",
			},
			[]string{"upstream", "method", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Histogram of upstream response latency (seconds)",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream", "method"},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.upstreamTotal, m.upstreamDuration)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveUpstream(upstream, method, outcome string, elapsed time.Duration) {
	m.upstreamTotal.WithLabelValues(upstream, method, outcome).Inc()
	m.upstreamDuration.WithLabelValues(upstream, method).Observe(elapsed.Seconds())
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Instrument wraps the whole router so that requests answered by its
// NotFound and MethodNotAllowed handlers are counted too. They are labelled
// "unmatched", matched requests carry their route template.
func (m *Metrics) Instrument(router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		router.ServeHTTP(ww, r)

		handler := "unmatched"
		var match mux.RouteMatch
		if router.Match(r, &match) && match.MatchErr == nil && match.Route != nil {
			if tpl, err := match.Route.GetPathTemplate(); err == nil {
				handler = tpl
			}
		}

		m.requestsTotal.WithLabelValues(handler, r.Method, strconv.Itoa(ww.status)).Inc()
		m.requestDuration.WithLabelValues(handler, r.Method).Observe(time.Since(start).Seconds())
	})
}
