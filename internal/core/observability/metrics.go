// Package observability holds the Prometheus metrics of the WFS client and gateway.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by the gateway.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of gateway HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_upstream_requests_total",
			Help: "WFS requests by request type and response status (0 = no response).",
		},
		[]string{"request", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wfs_upstream_latency_seconds",
			Help:    "Latency of WFS calls in seconds, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"request"},
	)

	capabilitiesParseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_capabilities_parse_total",
			Help: "GetCapabilities parse outcomes.",
		},
		[]string{"outcome"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache lookups by cache and outcome.",
		},
		[]string{"cache", "outcome"},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of Redis cache operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstream(request string, status int, durationSeconds float64) {
	if request == "" {
		request = "unknown"
	}
	upstreamRequestsTotal.WithLabelValues(request, strconv.Itoa(status)).Inc()
	upstreamLatencySeconds.WithLabelValues(request).Observe(durationSeconds)
}

// ObserveCapabilitiesParse records "ok" or "malformed".
func ObserveCapabilitiesParse(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "malformed"
	}
	capabilitiesParseTotal.WithLabelValues(outcome).Inc()
}

func IncCacheHit(cache string) {
	cacheResults.WithLabelValues(cache, "hit").Inc()
}

func IncCacheMiss(cache string) {
	cacheResults.WithLabelValues(cache, "miss").Inc()
}

func IncCacheError(cache string) {
	cacheResults.WithLabelValues(cache, "error").Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	cacheOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
