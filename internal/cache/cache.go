package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)

	// SetIndexed stores value under key and registers key in each index set,
	// so a later Invalidate of the index removes it.
	SetIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, indexes ...string) error

	// Invalidate deletes the given keys, every key registered in the given
	// indexes, and the indexes themselves.
	Invalidate(ctx context.Context, keys []string, indexes []string) error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Client exposes the underlying client for components that share the
// connection (the notification stream publisher).
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCache) SetIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, indexes ...string) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, idx := range indexes {
		pipe.SAdd(ctx, idx, key)
		// The index outlives its newest member.
		pipe.Expire(ctx, idx, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, keys []string, indexes []string) error {
	toDelete := append([]string(nil), keys...)

	if len(indexes) > 0 {
		pipe := c.client.Pipeline()
		members := make([]*redis.StringSliceCmd, len(indexes))
		for i, idx := range indexes {
			members[i] = pipe.SMembers(ctx, idx)
		}
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return err
		}
		for i, idx := range indexes {
			toDelete = append(toDelete, members[i].Val()...)
			toDelete = append(toDelete, idx)
		}
	}

	if len(toDelete) == 0 {
		return nil
	}
	return c.client.Del(ctx, toDelete...).Err()
}
