// Package middleware holds the HTTP middleware specific to this site:
// submission rate limiting and the admin session gate.
package middleware

import (
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// rateLimitWindow is the fixed counting window. The limit itself comes
// from configuration.
const rateLimitWindow = time.Minute

// RateLimiter counts requests per client IP and path in Redis. When
// Redis is unreachable the limiter fails open; a lost throttle is
// better than a down contact form.
type RateLimiter struct {
	client    *redis.Client
	perMinute int
}

func NewRateLimiter(client *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{client: client, perMinute: perMinute}
}

// Limit rejects clients that exceed the per-minute budget with a plain
// 429 response.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ratelimit:" + clientIP(r) + ":" + r.URL.Path

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[ratelimit] incr %s: %v", key, err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := rl.client.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
				log.Printf("[ratelimit] expire %s: %v", key, err)
			}
		}

		if count > int64(rl.perMinute) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests. Try again in a minute.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. Behind a trusted proxy the
// router's RealIP middleware has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
