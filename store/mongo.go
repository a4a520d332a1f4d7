package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRecord struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// MongoKV stores one document per key. Expired documents are removed by a TTL
// index and are also filtered out on read since the TTL monitor runs lazily.
type MongoKV struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoKV(db *mongo.Database, collection string) *MongoKV {
	return &MongoKV{
		collection: db.Collection(collection),
		now:        time.Now,
	}
}

func (m *MongoKV) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

func (m *MongoKV) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	rec := mongoRecord{Key: key, Value: val}
	if ttl > 0 {
		exp := m.now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set %s: %w", key, err)
	}
	return nil
}

func (m *MongoKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec mongoRecord
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo get %s: %w", key, err)
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(m.now()) {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (m *MongoKV) Del(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo del %s: %w", key, err)
	}
	return nil
}

func (m *MongoKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}
