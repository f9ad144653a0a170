// Package mongo provides a [kv.Store] backed by a MongoDB collection. Each
// key is stored as one document whose _id is the key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "kv"

var _ kv.Store = (*Store)(nil)

type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store is a [kv.Store] backed by a [mongo.Collection].
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to the MongoDB deployment at uri and uses the given database
// and collection. An empty collection selects [DefaultCollection].
func New(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo kv: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo kv: ping: %w", err)
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Get implements [kv.Store].
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongo kv: get %q: %w", key, err)
	}
	return e.Value, true, nil
}

// Set implements [kv.Store].
func (s *Store) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo kv: set %q: %w", key, err)
	}
	return nil
}

// Remove implements [kv.Store].
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo kv: remove %q: %w", key, err)
	}
	return nil
}

// Ping implements [kv.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close implements [kv.Store].
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the backing collection. Intended for tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.collection.Drop(ctx)
}
