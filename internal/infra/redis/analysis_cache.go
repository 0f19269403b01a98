package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/repository"
	"commentiq-monitor/internal/infra/metrics"
)

var _ repository.AnalysisCache = (*AnalysisCache)(nil)

// AnalysisCache keeps the last-known analysis snapshot in Redis so status
// reads do not hammer the backend between poll ticks.
type AnalysisCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewAnalysisCache(client RedisClient, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

func cacheKey(id string) string { return "analysis:" + id }

func (c *AnalysisCache) Store(ctx context.Context, a *model.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(a.ID), data, c.ttl)
}

func (c *AnalysisCache) Get(ctx context.Context, id string) (*model.Analysis, error) {
	data, err := c.client.Get(ctx, cacheKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncCacheRequest("miss")
			return nil, domain.ErrNotFound
		}
		metrics.IncCacheRequest("error")
		return nil, err
	}
	var a model.Analysis
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		// A snapshot we can no longer decode is as good as absent.
		metrics.IncCacheRequest("error")
		_ = c.client.Del(ctx, cacheKey(id))
		return nil, domain.ErrNotFound
	}
	metrics.IncCacheRequest("hit")
	return &a, nil
}

func (c *AnalysisCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, cacheKey(id))
}
