package launcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultMarkerTTL bounds how long a marker survives a crashed holder.
const DefaultMarkerTTL = 30 * time.Minute

const redisMarkerPrefix = "corevalid:launching:"

// RedisMarkers is a MarkerSet shared by every adapter replica using the
// same Redis. Markers expire after ttl so a replica dying mid-launch cannot
// block a timestamp forever.
type RedisMarkers struct {
	client *redis.Client
	ttl    time.Duration
	holder string
}

// NewRedisMarkers creates a set on client. holder is stored as the marker
// value for diagnostics.
func NewRedisMarkers(client *redis.Client, ttl time.Duration, holder string) *RedisMarkers {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &RedisMarkers{client: client, ttl: ttl, holder: holder}
}

// TryAdd sets the marker if absent.
func (r *RedisMarkers) TryAdd(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisMarkerPrefix+key, r.holder, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Remove deletes the marker.
func (r *RedisMarkers) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisMarkerPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Contains reports whether the marker exists.
func (r *RedisMarkers) Contains(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisMarkerPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
