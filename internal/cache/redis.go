package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores encoded payloads in Redis with a key prefix and TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	codec  Codec
}

// NewRedisCache connects to the Redis server at url
func NewRedisCache(url, prefix string, ttl time.Duration, codec Codec) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		// Plain host:port
		opts = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, prefix: prefix, ttl: ttl, codec: codec}, nil
}

// Get fetches and decodes the payload of key
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	value, err := c.codec.Decode(payload)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set encodes value and stores it with the cache TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	payload, err := c.codec.Encode(value)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
