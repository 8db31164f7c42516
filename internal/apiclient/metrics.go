package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request layer activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHitsTotal  *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
}

// NewMetrics creates request layer metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valuation",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Backend API calls by outcome status.",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "valuation",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Backend API call latency including retries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valuation",
				Subsystem: "api",
				Name:      "cache_hits_total",
				Help:      "GET calls served from the response cache.",
			},
			[]string{"endpoint"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valuation",
				Subsystem: "api",
				Name:      "rate_limited_total",
				Help:      "Calls rejected by the local rate gate.",
			},
			[]string{"endpoint"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valuation",
				Subsystem: "api",
				Name:      "retries_total",
				Help:      "Retry attempts issued after a failed call.",
			},
			[]string{"method", "endpoint"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.cacheHitsTotal,
		m.rateLimited,
		m.retriesTotal,
	)
	return m
}

// Registry exposes the underlying registry for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeRequest(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCacheHit(endpoint string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observeRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observeRetry(method, endpoint string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(method, endpoint).Inc()
}
