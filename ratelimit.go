package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimiter counts hits per key inside a fixed window.
type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// redisLimiter is a fixed-window counter shared by every API instance.
type redisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func newRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *redisLimiter {
	return &redisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	countKey := l.prefix + ":" + key

	cnt, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return false, err
	}
	// first hit in the window starts the clock
	if cnt == 1 {
		if err := l.client.Expire(ctx, countKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(l.limit), nil
}

// rateLimit throttles an authenticated handler per user. It fails open when
// the limiter is unreachable and is a no-op without a limiter.
func (s *server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(r.Context())
		if !ok {
			next(w, r)
			return
		}
		allowed, err := s.limiter.Allow(r.Context(), "uid:"+strconv.Itoa(userID))
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
			next(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next(w, r)
	}
}
