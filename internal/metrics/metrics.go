// Package metrics provides Prometheus metrics for refstore
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for refstore. Each instance owns its
// registry. All record methods are safe on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Resolve metrics
	ResolvesTotal          *prometheus.CounterVec
	ResolveDuration        prometheus.Histogram
	ResolveNotModified     prometheus.Counter
	ResolveUnresolvedTotal prometheus.Counter

	// Audit pipeline
	AuditDroppedTotal prometheus.Counter

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refstore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refstore_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.ResolvesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refstore_resolves_total",
			Help: "Total number of resolve requests by outcome code",
		},
		[]string{"code"},
	)

	m.ResolveDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refstore_resolve_duration_seconds",
			Help:    "Duration of reference resolution in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	m.ResolveNotModified = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "refstore_resolve_not_modified_total",
			Help: "Total number of resolves answered with 304 Not Modified",
		},
	)

	m.ResolveUnresolvedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "refstore_resolve_unresolved_params_total",
			Help: "Total number of placeholders left unresolved across resolves",
		},
	)

	m.AuditDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "refstore_audit_dropped_total",
			Help: "Total number of resolve audit records that could not be queued",
		},
	)

	m.RateLimitedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refstore_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"plan"},
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordHTTPRequest records one HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordResolve records the outcome of one resolve
func (m *Metrics) RecordResolve(code string, duration time.Duration, unresolved int, notModified bool) {
	if m == nil {
		return
	}
	m.ResolvesTotal.WithLabelValues(code).Inc()
	m.ResolveDuration.Observe(duration.Seconds())
	if unresolved > 0 {
		m.ResolveUnresolvedTotal.Add(float64(unresolved))
	}
	if notModified {
		m.ResolveNotModified.Inc()
	}
}

// RecordAuditDropped counts one audit record lost before persistence
func (m *Metrics) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.AuditDroppedTotal.Inc()
}

// RecordRateLimited counts one rejected request
func (m *Metrics) RecordRateLimited(plan string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(plan).Inc()
}
