package cache

import "context"

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Set(ctx context.Context, key string, value []byte) error { return nil }

func (NoopCache) Close() error { return nil }
