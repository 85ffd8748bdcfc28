package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/letser/plotplay-sub001/internal/infrastructure/websocket"
)

// responseWriter wraps http.ResponseWriter to capture status code and bytes
// written, for loggingMiddleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// loggingMiddleware logs every request with timing and status information.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes_written", rw.written,
		)
	})
}

// recoveryMiddleware recovers from a handler panic and returns 500 JSON
// instead of crashing the process.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "error", err, "method", r.Method, "path", r.URL.Path)
				respondError(w, logger, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds permissive CORS headers, since session tokens (not
// cookies) carry auth and the frontend may be served from a different
// origin during development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// playerIDKey is the context key authMiddleware stores the authenticated
// player id under.
type playerIDKey struct{}

// playerIDFromContext returns the player id authMiddleware attached to r's
// context, or the empty string if none was set (the
// handler is running under NoAuth or a missing middleware, e.g. in a test).
func playerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerIDKey{}).(string)
	return id
}

// authMiddleware authenticates every request with auth, rejecting with 401
// on failure and otherwise attaching the resolved player id to the request
// context. It mirrors the teacher's API-key gate, substituting the
// session-token Authenticator the websocket package already implements so
// both transports share one identity contract.
func authMiddleware(auth websocket.Authenticator, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		playerID, err := auth.Authenticate(r)
		if err != nil {
			respondError(w, logger, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), playerIDKey{}, playerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimiter is a per-IP sliding-window limiter, same shape as the
// teacher's, guarding session/action endpoints from runaway polling since
// every call here can trigger a Writer/Checker round trip.
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{requests: make(map[string][]time.Time), limit: limit, window: window}
}

func (rl *rateLimiter) middleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		now := time.Now()
		windowStart := now.Add(-rl.window)

		rl.mu.Lock()
		valid := make([]time.Time, 0, len(rl.requests[key]))
		for _, t := range rl.requests[key] {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		if len(valid) >= rl.limit {
			rl.mu.Unlock()
			respondError(w, logger, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		rl.requests[key] = append(valid, now)
		rl.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
