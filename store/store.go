package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

type Codec[S any] interface {
	Marshal(val S) ([]byte, error)
	Unmarshal(data []byte) (S, error)
}

type JSONCodec[S any] struct{}

func (JSONCodec[S]) Marshal(val S) ([]byte, error) {
	return sonic.Marshal(val)
}

func (JSONCodec[S]) Unmarshal(data []byte) (S, error) {
	var val S
	err := sonic.Unmarshal(data, &val)
	return val, err
}

// DecodeError reports a stored value that no longer decodes.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Store is a typed view over a KV, scoping every key under a namespace.
type Store[S any] struct {
	core      KV
	codec     Codec[S]
	namespace string
	ttl       time.Duration
}

func New[S any](core KV, codec Codec[S], namespace string, ttl time.Duration) Store[S] {
	if codec == nil {
		codec = JSONCodec[S]{}
	}
	return Store[S]{
		core:      core,
		codec:     codec,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (c Store[S]) Key(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

func (c Store[S]) Set(ctx context.Context, key string, val S) error {
	data, err := c.codec.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key(key), err)
	}
	return c.core.Set(ctx, c.Key(key), data, c.ttl)
}

func (c Store[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	data, ok, err := c.core.Get(ctx, c.Key(key))
	if err != nil || !ok {
		return zero, false, err
	}
	val, err := c.codec.Unmarshal(data)
	if err != nil {
		return zero, false, &DecodeError{Key: c.Key(key), Err: err}
	}
	return val, true, nil
}

func (c Store[S]) Del(ctx context.Context, key string) error {
	return c.core.Del(ctx, c.Key(key))
}

func (c Store[S]) Exists(ctx context.Context, key string) (bool, error) {
	return c.core.Exists(ctx, c.Key(key))
}
