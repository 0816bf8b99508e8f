// Package metrics provides Prometheus metrics for the TaskDeck client:
// request counters, cache effectiveness, retry volume and health polling.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Requests ───────────────────────────────────────────────────────────────

// RequestsTotal counts backend requests by method and status class ("2xx").
var RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "requests_total",
	Help:      "Total backend requests by method and status class.",
}, []string{"method", "status"})

// RequestDuration tracks backend request duration in seconds.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "taskdeck",
	Name:      "request_duration_seconds",
	Help:      "Backend request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method"})

// RequestErrors counts failed requests by error kind (api, timeout, network).
var RequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "request_errors_total",
	Help:      "Total failed backend requests by error kind.",
}, []string{"kind"})

// RetriesTotal counts retry attempts across all requests.
var RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "retries_total",
	Help:      "Total retry attempts.",
})

// ─── Cache ──────────────────────────────────────────────────────────────────

// CacheHits counts GET responses served from the TTL cache.
var CacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "cache_hits_total",
	Help:      "GET responses served from the TTL cache.",
})

// CacheMisses counts cacheable GETs that went to the network.
var CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "cache_misses_total",
	Help:      "Cacheable GET requests that missed the cache.",
})

// CacheInvalidations counts entries evicted by mutation-driven invalidation.
var CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "cache_invalidations_total",
	Help:      "Cache entries evicted after successful mutations.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthChecksTotal counts health checks by result (ok, failed, skipped).
var HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskdeck",
	Name:      "health_checks_total",
	Help:      "Total health checks by result.",
}, []string{"result"})

// HealthOnline is 1 while the backend is reachable, 0 otherwise.
var HealthOnline = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskdeck",
	Name:      "health_online",
	Help:      "Whether the backend is currently reachable.",
})

// HealthConsecutiveErrors tracks the current consecutive failure count.
var HealthConsecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskdeck",
	Name:      "health_consecutive_errors",
	Help:      "Consecutive failed health checks.",
})

// HealthResponseTime tracks health check round-trip time in seconds.
var HealthResponseTime = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskdeck",
	Name:      "health_response_time_seconds",
	Help:      "Health check round-trip time in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2.5, 5},
})
