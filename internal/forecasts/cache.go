package forecasts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"swellwatch/internal/types"
)

// RedisKV is the subset of *redis.Client the cache uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares resolved snapshots between workers so concurrent user
// runs hit the store and provider once per region per day.
type RedisCache struct {
	client RedisKV
	ttl    time.Duration
}

func NewRedisCache(client RedisKV, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(regionID string, date time.Time) string {
	return fmt.Sprintf("forecast:%s:%s", regionID, types.Day(date).Format(types.DateLayout))
}

// Get returns nil, nil on a cache miss.
func (c *RedisCache) Get(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error) {
	data, err := c.client.Get(ctx, cacheKey(regionID, date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast from redis: %w", err)
	}

	var f types.ForecastSnapshot
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached forecast: %w", err)
	}
	return &f, nil
}

// Put stores the snapshot with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, f *types.ForecastSnapshot) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(f.RegionID, f.Date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set forecast in redis: %w", err)
	}
	return nil
}
