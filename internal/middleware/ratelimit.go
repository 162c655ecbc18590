package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/pkg/response"
)

// RateLimit returns middleware that limits requests per user for a named
// action. Counters live in Redis so the limit holds across replicas; when
// Redis is unavailable the limiter falls back to a per-process window
// rather than rejecting traffic.
func RateLimit(client *redis.Client, action string, limit int, window time.Duration) func(http.Handler) http.Handler {
	fallback := newLocalWindowLimiter(limit, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())

			allowed := true
			if client != nil {
				// INCR and EXPIRE ship as one pipeline so a crash between
				// them cannot leave a counter key without a TTL.
				key := fmt.Sprintf("ratelimit:%s:%s", action, userID.String())
				pipe := client.TxPipeline()
				count := pipe.Incr(r.Context(), key)
				pipe.ExpireNX(r.Context(), key, window)
				if _, err := pipe.Exec(r.Context()); err != nil {
					log.Warn().Err(err).Str("action", action).Msg("rate limiter redis error, using local fallback")
					allowed = fallback.Allow(userID.String())
				} else {
					allowed = count.Val() <= int64(limit)
				}
			} else {
				allowed = fallback.Allow(userID.String())
			}

			if !allowed {
				log.Warn().
					Str("user_id", userID.String()).
					Str("action", action).
					Msg("rate limit exceeded")
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type localWindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  map[string][]time.Time
}

func newLocalWindowLimiter(limit int, window time.Duration) *localWindowLimiter {
	return &localWindowLimiter{
		limit:  limit,
		window: window,
		calls:  make(map[string][]time.Time),
	}
}

func (l *localWindowLimiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.calls[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.calls[key] = kept
		return false
	}

	kept = append(kept, now)
	l.calls[key] = kept
	return true
}
