package api

import (
	"net/http"
	"strings"
)

// actorHeader identifies who performed an operation for the audit trail.
const actorHeader = "X-Actor"

// defaultActor is recorded when no X-Actor header is present.
const defaultActor = "system"

// actorFrom extracts the acting staff member from the request headers.
func actorFrom(header string) string {
	actor := strings.TrimSpace(header)
	if actor == "" {
		return defaultActor
	}
	return actor
}

// rateLimitMiddleware rejects clients that exceed the per-address budget.
// Keyed on RealIP, so it runs after the RealIP middleware.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.RemoteAddr) {
			s.logger.Warn("rate limit exceeded", "remote", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
