package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gate metrics
	GateDecisionsTotal *prometheus.CounterVec

	// Profile resolver metrics
	ResolvesTotal   *prometheus.CounterVec
	ResolveDuration prometheus.Histogram

	// Session metrics
	SessionOpsTotal *prometheus.CounterVec
	SignInsTotal    *prometheus.CounterVec

	// Client identity cache metrics
	CacheResolvesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_gate_decisions_total",
				Help: "Authorization gate verdicts by outcome",
			},
			[]string{"verdict"},
		),
		ResolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_profile_resolves_total",
				Help: "Profile resolver outcomes",
			},
			[]string{"outcome"},
		),
		ResolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storefront_profile_resolve_duration_seconds",
				Help:    "Profile resolve duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SessionOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_session_ops_total",
				Help: "Session store operations",
			},
			[]string{"op", "result"},
		),
		SignInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_sign_ins_total",
				Help: "Sign-in attempts by result",
			},
			[]string{"result"},
		),
		CacheResolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_identity_cache_resolves_total",
				Help: "Client identity cache resolve completions",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GateDecisionsTotal,
		m.ResolvesTotal,
		m.ResolveDuration,
		m.SessionOpsTotal,
		m.SignInsTotal,
		m.CacheResolvesTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
