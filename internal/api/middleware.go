package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/pkg/logger"
	"github.com/wonny/demandcast/pkg/redis"
)

const (
	maxLimitedClients = 10000
	bucketIdleTTL     = 10 * time.Minute
)

// Limiter enforces a per-client request rate.
// With Redis enabled the window is shared by every replica; otherwise
// each process keeps a token bucket per client, at most maxLimitedClients
// of them, each dropped bucketIdleTTL after creation.
type Limiter struct {
	perSecond float64
	burst     int
	shared    *redis.RateLimiter

	mu      sync.Mutex // get-or-create on buckets
	buckets *expirable.LRU[string, *rate.Limiter]
}

// NewLimiter creates a limiter; shared may be nil
func NewLimiter(perSecond float64, burst int, shared *redis.RateLimiter) *Limiter {
	return newLimiter(perSecond, burst, shared, maxLimitedClients, bucketIdleTTL)
}

func newLimiter(perSecond float64, burst int, shared *redis.RateLimiter, maxClients int, ttl time.Duration) *Limiter {
	return &Limiter{
		perSecond: perSecond,
		burst:     burst,
		shared:    shared,
		buckets:   expirable.NewLRU[string, *rate.Limiter](maxClients, nil, ttl),
	}
}

// Allow reports whether client may make another request
func (l *Limiter) Allow(r *http.Request, client string) bool {
	if l.shared != nil && l.shared.Enabled() {
		allowed, _, err := l.shared.Allow(r.Context(), redis.APIRateLimit(client, l.perSecond))
		if err == nil {
			return allowed
		}
		// Redis 장애 시 로컬 버킷으로 폴백
	}

	l.mu.Lock()
	b, ok := l.buckets.Get(client)
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		l.buckets.Add(client, b)
	}
	l.mu.Unlock()

	return b.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects clients over their limit with 429
func rateLimitMiddleware(l *Limiter, m *metrics.Metrics, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			if !l.Allow(r, client) {
				if m != nil {
					m.APIRateLimited.Inc()
				}
				log.WithField("client", client).Debug("Rate limited")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and counts them by route
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)
			reqLog := log.WithField("request_id", requestID)

			next.ServeHTTP(rec, r.WithContext(reqLog.IntoContext(r.Context())))

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if m != nil {
				m.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			}

			reqLog.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
