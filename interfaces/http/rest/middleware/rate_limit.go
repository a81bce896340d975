package middleware

import (
	"net"
	"net/http"
	"strings"

	"recipegraph/pkg/auth"
	pkgerrors "recipegraph/pkg/errors"
)

// RateLimit applies a per-client-IP token bucket.
func RateLimit(limiter *auth.KeyedLimiter, errorHandler *pkgerrors.ErrorHandler) func(http.Handler) http.Handler {
	rps, burst := limiter.Limit()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), ClientIP(r))
			if err != nil {
				errorHandler.Handle(w, r, pkgerrors.NewInternalError("rate limiter failure").WithCause(err))
				return
			}
			if !allowed {
				errorHandler.Handle(w, r, pkgerrors.NewRateLimitError(rps, burst))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller address. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
