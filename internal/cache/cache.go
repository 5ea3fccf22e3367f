// Package cache stores encoded analysis responses keyed by a hash of the request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/soltixdb/trendscope/internal/config"
	"github.com/soltixdb/trendscope/internal/utils"
)

// ErrClosed is returned by operations on a closed cache
var ErrClosed = errors.New("cache is closed")

// ResultCache stores analysis responses
type ResultCache interface {
	// Get returns the value stored under key. A missing or expired entry is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the configured TTL
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the cache
	Close() error
}

// Key hashes a canonical request encoding into a cache key
func Key(canonical []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(canonical))
}

// New creates the ResultCache selected by cfg.Type. An empty type selects the
// memory cache.
func New(cfg config.CacheConfig) (ResultCache, error) {
	codec, err := CodecFor(cfg.Compression)
	if err != nil {
		return nil, err
	}

	switch utils.CacheType(strings.ToLower(cfg.Type)) {
	case "", utils.CacheTypeMemory:
		return NewMemoryCache(cfg.MaxItems, cfg.TTL), nil
	case utils.CacheTypeRedis:
		return NewRedisCache(cfg.URL, cfg.Prefix, cfg.TTL, codec)
	case utils.CacheTypeSQLite:
		return NewSQLiteCache(cfg.Path, cfg.TTL, codec)
	case utils.CacheTypeNone:
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s (supported: memory, redis, sqlite, none)", cfg.Type)
	}
}
