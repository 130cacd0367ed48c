package mockbackend

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/infohunter/internal/auth"
	"github.com/devilmonastery/infohunter/internal/pkg/logger"
	"github.com/devilmonastery/infohunter/internal/pkg/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// logRequests logs every request with slog
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log := logger.WithDuration(logger.WithHTTPRequest(s.logger, r.Method, r.URL.Path), time.Since(start))
		attrs := []any{
			"query", r.URL.RawQuery,
			"status", wrapped.statusCode,
			"bytes", wrapped.written,
		}
		if wrapped.statusCode >= 500 {
			log.Error("http request", attrs...)
		} else {
			log.Debug("http request", attrs...)
		}
	})
}

// countRequests feeds the test counters and the Prometheus HTTP metrics
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeTemplate(r)

		metrics.HTTPActiveRequests.Inc()
		defer metrics.HTTPActiveRequests.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.requests.Add(1)
		if wrapped.statusCode == http.StatusUnauthorized {
			s.unauthorized.Add(1)
		}
		s.routesMu.Lock()
		s.routes[r.Method+" "+route]++
		s.routesMu.Unlock()

		metrics.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start))
	})
}

// checkAPIKey rejects requests without the configured X-API-Key
func (s *Server) checkAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.APIKey)) != 1 {
				writeDetail(w, http.StatusForbidden, "Invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authed requires a valid bearer access token
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := s.jwt.ValidateToken(token)
		if err != nil {
			msg := "Could not validate credentials"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Token has expired"
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, msg)
			return
		}

		id, _ := claims.UserID()
		s.mu.Lock()
		u, exists := s.users[id]
		s.mu.Unlock()
		if !exists {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := auth.WithPrincipal(r.Context(), &auth.Principal{
			UserID:   u.ID,
			Username: u.Username,
			Role:     string(u.Role),
		})
		h(w, r.WithContext(ctx))
	})
}

// admin requires a valid bearer token belonging to an admin
func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.authed(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireAdmin(r.Context()); err != nil {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		h(w, r)
	})
}

// currentUser returns the caller's ID; only valid behind authed
func currentUser(r *http.Request) int64 {
	p, err := auth.PrincipalFrom(r.Context())
	if err != nil {
		return 0
	}
	return p.UserID
}
