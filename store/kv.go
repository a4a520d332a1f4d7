package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type KV interface {
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryKV keeps values in process memory. Zero ttl means the value never expires.
type MemoryKV struct {
	c *cache.Cache
}

func NewMemoryKV(cleanup time.Duration) *MemoryKV {
	return &MemoryKV{c: cache.New(cache.NoExpiration, cleanup)}
}

func (m *MemoryKV) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	buf := make([]byte, len(val))
	copy(buf, val)
	m.c.Set(key, buf, ttl)
	return nil
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	buf, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return buf, true, nil
}

func (m *MemoryKV) Del(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.c.Get(key)
	return ok, nil
}
