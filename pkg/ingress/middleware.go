package ingress

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request with method, path,
// status and latency. NewRouter adds it first, so it wraps every other
// middleware and the handler.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// APIKeyAuth checks the X-API-Key header against expectedKey. An empty
// expectedKey disables auth entirely (development mode), matching
// authentication.py's verify_api_key.
func APIKeyAuth(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if got == "" {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				writeValidationError(w, "missing API key")
				return
			}
			if got != expectedKey {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				writeValidationError(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is an in-memory sliding-window limiter keyed by client IP,
// ported from rate_limiting.py's RateLimiter.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	window            time.Duration
	requests          map[string][]time.Time
}

// NewRateLimiter constructs a limiter allowing requestsPerMinute requests
// in any trailing 60-second window per client.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		window:            time.Minute,
		requests:          make(map[string][]time.Time),
	}
}

func (rl *RateLimiter) isAllowed(clientID string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	kept := rl.requests[clientID][:0]
	for _, ts := range rl.requests[clientID] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	rl.requests[clientID] = kept

	if len(kept) >= rl.requestsPerMinute {
		return false, 0
	}
	rl.requests[clientID] = append(rl.requests[clientID], now)
	return true, rl.requestsPerMinute - len(kept) - 1
}

// Middleware applies the limiter, rejecting over-quota requests with 429
// and otherwise annotating the response with the standard rate-limit
// headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			clientID = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}

		allowed, remaining := rl.isAllowed(clientID)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMinute))
		if !allowed {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			writeError(w, apperrors.New(apperrors.ErrMaxRetriesExceeded, "rate limit exceeded, retry later"))
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}
