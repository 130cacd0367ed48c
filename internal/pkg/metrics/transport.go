package metrics

import (
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// apiMetricsTransport wraps an http.RoundTripper to collect metrics on InfoHunter API calls
type apiMetricsTransport struct {
	base http.RoundTripper
}

// NewAPITransport creates a new transport wrapper that collects metrics
// for all InfoHunter API calls. It should be installed on the API client.
func NewAPITransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &apiMetricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper, wrapping the base transport with metrics collection
func (t *apiMetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isAPIRequest(req) {
		return t.base.RoundTrip(req)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	route := normalizeRoute(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	APICalls.WithLabelValues(req.Method, route, strconv.Itoa(statusCode)).Inc()
	APIDuration.WithLabelValues(req.Method, route).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		APIErrors.WithLabelValues(route, classifyError(statusCode, err)).Inc()
	}

	return resp, err
}

// isAPIRequest checks if the request targets the REST API rather than, say, a content URL
func isAPIRequest(req *http.Request) bool {
	return strings.Contains(req.URL.Path, "/api/")
}

var routePatterns = []struct {
	regex   *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`/api/subscriptions/\d+`), "/api/subscriptions/:id"},
	{regexp.MustCompile(`/api/user/subscriptions/\d+`), "/api/user/subscriptions/:id"},
	{regexp.MustCompile(`/api/user/feed/\d+`), "/api/user/feed/:id"},
	{regexp.MustCompile(`/api/devices/[^/]+$`), "/api/devices/:id"},
	{regexp.MustCompile(`/api/config/[^/]+$`), "/api/config/:key"},
}

// normalizeRoute replaces IDs and keys in API paths with placeholders.
// This prevents high cardinality in metrics while still providing useful aggregation.
func normalizeRoute(path string) string {
	if strings.HasSuffix(path, "/api/devices/register") {
		return path
	}

	normalized := path
	for _, p := range routePatterns {
		normalized = p.regex.ReplaceAllString(normalized, p.replace)
	}
	return normalized
}

// classifyError categorizes API errors for metrics
func classifyError(statusCode int, err error) string {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout"):
			return "timeout"
		case strings.Contains(errStr, "connection"):
			return "connection"
		case strings.Contains(errStr, "tls"), strings.Contains(errStr, "TLS"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 422:
		return "validation"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
