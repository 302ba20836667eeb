package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitScript trims the sliding window, counts what is left, and admits
// the request only when the count is under the limit. Runs atomically.
var rateLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, now)
		redis.call('EXPIRE', key, window)
		return {1, current + 1}
	end
	return {0, current}
`)

// RateLimiter is a Redis-backed sliding window limiter keyed by client IP.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit requests per client per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow reports whether a request under key fits in the current window and
// how many requests remain.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int, err error) {
	now := time.Now()
	result, err := rateLimitScript.Run(ctx, rl.client, []string{"ratelimit:" + key},
		now.UnixNano(),
		now.Add(-rl.window).UnixNano(),
		rl.limit,
		int(rl.window.Seconds()),
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	pair, ok := result.([]interface{})
	if !ok || len(pair) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", result)
	}
	admitted, aok := pair[0].(int64)
	counted, cok := pair[1].(int64)
	if !aok || !cok {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", result)
	}
	ok = admitted == 1
	count := int(counted)

	remaining = rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ok, remaining, nil
}

// Middleware enforces the limit per client IP. Redis errors fail open so a
// cache outage never takes the API down with it.
func (rl *RateLimiter) Middleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, err := rl.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				RenderError(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
