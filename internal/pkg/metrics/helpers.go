package metrics

import (
	"strconv"
	"strings"
	"time"
)

// RecordTokenRefresh records one refresh cycle
// result: "success", "failure" or "discarded"
func RecordTokenRefresh(result string, duration time.Duration) {
	TokenRefreshes.WithLabelValues(result).Inc()
	TokenRefreshDuration.Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequest records a request served by the development backend
// route: the router's path template (e.g., "/api/subscriptions/{id}")
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}

// QueryLabel reduces a cache key to its first segment to keep label cardinality low
// (e.g., "credits/summary/30" -> "credits")
func QueryLabel(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return key
}
