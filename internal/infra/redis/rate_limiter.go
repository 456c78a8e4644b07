package redis

import (
	"context"
	"fmt"
	"time"

	"content-pipeline/internal/domain/model"
)

// RateLimiter throttles outbound platform API calls with a fixed hourly
// window per platform. The counter lives in Redis so multiple pipeline
// instances share the same budget.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// AllowPublish checks the per-platform hourly publish budget.
func (r *RateLimiter) AllowPublish(ctx context.Context, platform model.Platform, perHour int) (bool, error) {
	if perHour <= 0 {
		return true, nil
	}
	return r.Allow(ctx, PlatformPublishKey(platform), perHour, time.Hour)
}

func PlatformPublishKey(platform model.Platform) string {
	return fmt.Sprintf("rate_limit:publish:%s", platform)
}
