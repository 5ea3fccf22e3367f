package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soltixdb/trendscope/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = []byte(`{"length":3,"series":{"mine_a":{"stats":{"mean":2}}},"total":{"stats":{"mean":2}}}`)

func TestKey(t *testing.T) {
	a := Key([]byte(`{"series":{"a":[1,2]}}`))
	b := Key([]byte(`{"series":{"a":[1,2]}}`))
	c := Key([]byte(`{"series":{"a":[1,3]}}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CacheConfig
		want    interface{}
		wantErr bool
	}{
		{name: "default is memory", cfg: config.CacheConfig{}, want: &MemoryCache{}},
		{name: "memory", cfg: config.CacheConfig{Type: "memory", MaxItems: 4}, want: &MemoryCache{}},
		{name: "none", cfg: config.CacheConfig{Type: "none"}, want: NoopCache{}},
		{name: "sqlite", cfg: config.CacheConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")}, want: &SQLiteCache{}},
		{name: "unknown type", cfg: config.CacheConfig{Type: "memcached"}, wantErr: true},
		{name: "unknown compression", cfg: config.CacheConfig{Compression: "zstd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { _ = c.Close() }()
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	large := bytes.Repeat(payload, 200)

	for _, name := range []string{"", "snappy", "lz4", "none"} {
		codec, err := CodecFor(name)
		require.NoError(t, err)

		for _, data := range [][]byte{payload, large, {}} {
			encoded, err := codec.Encode(data)
			require.NoError(t, err)
			assert.Equal(t, byte(codec.Algorithm()), encoded[0])

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, decoded), "codec %s", codec.Algorithm())
		}
	}
}

func TestCodec_CompressesRepetitivePayloads(t *testing.T) {
	large := bytes.Repeat(payload, 200)
	for _, name := range []string{"snappy", "lz4"} {
		codec, _ := CodecFor(name)
		encoded, err := codec.Encode(large)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(large)/4, name)
	}
}

func TestCodec_DecodesAnyAlgorithm(t *testing.T) {
	lz, _ := CodecFor("lz4")
	sn, _ := CodecFor("snappy")

	encoded, err := lz.Encode(payload)
	require.NoError(t, err)

	decoded, err := sn.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCodec_DecodeErrors(t *testing.T) {
	codec, _ := CodecFor("snappy")

	_, err := codec.Decode(nil)
	assert.Error(t, err)

	_, err = codec.Decode([]byte{9, 1, 2})
	assert.Error(t, err)

	_, err = codec.Decode([]byte{byte(Snappy), 0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(4, time.Minute)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", payload))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)

	require.NoError(t, c.Set(ctx, "k", []byte("v2")))
	got, _, _ = c.Get(ctx, "k")
	assert.Equal(t, []byte("v2"), got)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(4, 0)

	value := []byte("original")
	require.NoError(t, c.Set(ctx, "k", value))
	copy(value, "modified")

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "original", string(got))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, 0)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))

	// Touch a so that b becomes the eviction candidate
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(4, time.Minute)

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", payload))

	now = now.Add(59 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Close(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0, 0)
	assert.Equal(t, DefaultMaxItems, c.maxItems)

	require.NoError(t, c.Set(ctx, "k", payload))
	require.NoError(t, c.Close())

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", payload), ErrClosed)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	var c ResultCache = NoopCache{}

	require.NoError(t, c.Set(ctx, "k", payload))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCache_GetSet(t *testing.T) {
	ctx := context.Background()
	codec, _ := CodecFor("lz4")
	path := filepath.Join(t.TempDir(), "cache", "results.db")

	c, err := NewSQLiteCache(path, time.Minute, codec)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", payload))
	require.NoError(t, c.Set(ctx, "k", payload))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
	require.NoError(t, c.Close())

	// Entries survive reopening the file
	c, err = NewSQLiteCache(path, time.Minute, codec)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	got, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestSQLiteCache_ExpiryAndPrune(t *testing.T) {
	ctx := context.Background()
	codec, _ := CodecFor("snappy")

	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "results.db"), time.Minute, codec)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", payload))
	require.NoError(t, c.Set(ctx, "b", payload))

	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "c", payload))

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed) // b; a was deleted on read

	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	codec, _ := CodecFor("snappy")
	prefix := "trendscope-test:" + time.Now().Format("150405.000000") + ":"
	c, err := NewRedisCache(url, prefix, time.Minute, codec)
	if err != nil {
		t.Skip("Redis not available")
	}
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", payload))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)

	ttl, err := c.client.TTL(ctx, prefix+"k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	c.client.Del(ctx, prefix+"k")
}
