package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type record struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New[record](NewMemoryKV(time.Minute), nil, "bot:form", 0)

	_, ok, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "42", record{Field: "name", Count: 3}))
	got, ok, err := s.Get(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record{Field: "name", Count: 3}, got)

	exists, err := s.Exists(ctx, "42")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Del(ctx, "42"))
	exists, err = s.Exists(ctx, "42")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreNamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	a := New[string](kv, nil, "a", 0)
	b := New[string](kv, nil, "b", 0)

	require.NoError(t, a.Set(ctx, "1", "first"))
	require.NoError(t, b.Set(ctx, "1", "second"))

	va, _, _ := a.Get(ctx, "1")
	vb, _, _ := b.Get(ctx, "1")
	assert.Equal(t, "first", va)
	assert.Equal(t, "second", vb)
	assert.Equal(t, "a:1", a.Key("1"))
}

func TestStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	require.NoError(t, kv.Set(ctx, "ns:7", []byte("{not json"), 0))

	s := New[record](kv, nil, "ns", 0)
	_, ok, err := s.Get(ctx, "7")
	assert.False(t, ok)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "ns:7", decodeErr.Key)
}

func TestMemoryKVExpires(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKVCopiesInput(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf, 0))
	buf[0] = 'x'
	got, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func exerciseKV(t *testing.T, kv KV) {
	ctx := context.Background()
	key := "tgform-test:" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, kv.Set(ctx, key, []byte("hello"), time.Minute))
	got, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))
	require.NoError(t, kv.Del(ctx, key))
	ok, err = kv.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV(t *testing.T) {
	url := os.Getenv("TGFORM_REDIS_URL")
	if url == "" {
		t.Skip("set TGFORM_REDIS_URL to run redis tests")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()
	exerciseKV(t, NewRedisKV(client))
}

func TestMongoKV(t *testing.T) {
	uri := os.Getenv("TGFORM_MONGODB_URI")
	if uri == "" {
		t.Skip("set TGFORM_MONGODB_URI to run mongodb tests")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()
	kv := NewMongoKV(client.Database("tgform_test"), "kv")
	require.NoError(t, kv.EnsureIndexes(ctx))
	exerciseKV(t, kv)
}

func TestMongoKVSkipsExpiredOnRead(t *testing.T) {
	uri := os.Getenv("TGFORM_MONGODB_URI")
	if uri == "" {
		t.Skip("set TGFORM_MONGODB_URI to run mongodb tests")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()
	kv := NewMongoKV(client.Database("tgform_test"), "kv")
	require.NoError(t, kv.Set(ctx, "expired", []byte("x"), time.Second))
	kv.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, ok, err := kv.Get(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, ok)
}
