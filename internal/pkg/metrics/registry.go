package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API Client Metrics
var (
	// APICalls tracks calls made to the InfoHunter REST API
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_api_calls_total",
			Help: "Total InfoHunter API calls by method, route, and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIDuration tracks API call latency
	APIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "infohunter_api_call_duration_ms",
			Help:                            "InfoHunter API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)

	// APIErrors tracks failed API calls by error type
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_api_errors_total",
			Help: "Total InfoHunter API errors by route and error type",
		},
		[]string{"route", "error_type"},
	)

	// TokenRefreshes tracks access token refresh attempts
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_token_refreshes_total",
			Help: "Total access token refreshes by result (success, failure, discarded)",
		},
		[]string{"result"},
	)

	// TokenRefreshDuration tracks refresh round-trip latency
	TokenRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:                            "infohunter_token_refresh_duration_ms",
			Help:                            "Access token refresh duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
	)
)

// Query Cache Metrics
var (
	// CacheHits tracks query cache hits
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_cache_hits_total",
			Help: "Total query cache hits by query",
		},
		[]string{"query"},
	)

	// CacheMisses tracks query cache misses
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_cache_misses_total",
			Help: "Total query cache misses by query",
		},
		[]string{"query"},
	)

	// CacheSize tracks the number of cached queries
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infohunter_cache_entries",
			Help: "Current number of entries in the query cache",
		},
		[]string{"cache"},
	)

	// CacheInvalidations tracks entries dropped by invalidation
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_cache_invalidations_total",
			Help: "Total query cache entries invalidated by query prefix",
		},
		[]string{"query"},
	)
)

// HTTP Handler Metrics (development backend)
var (
	// HTTPRequests tracks HTTP requests served
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infohunter_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPDuration tracks HTTP request latency
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "infohunter_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)

	// HTTPActiveRequests tracks in-flight HTTP requests
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "infohunter_http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)
)
