package redis

import (
	"context"
	"fmt"
	"time"

	"commentiq-monitor/internal/infra/metrics"
)

// RateLimiter is a fixed-window counter. The verification endpoint sits on
// it so a retry-looping browser cannot hammer the payment backend.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow consumes one slot from the window for key. The first hit in a window
// arms the expiry, so the window is aligned to the first request rather than
// to wall-clock boundaries.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}
	if count > int64(limit) {
		metrics.IncVerifyThrottled()
		return false, nil
	}
	return true, nil
}

// VerifyKey scopes the verification endpoint limiter per client address.
func VerifyKey(remoteAddr string) string {
	return fmt.Sprintf("rate_limit:verify:%s", remoteAddr)
}
