// Package redis provides a [kv.Store] backed by Redis via go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

var _ kv.Store = (*Store)(nil)

// Option configures a [Store].
type Option func(*Store)

// WithTTL expires every written key after ttl. Zero, the default, keeps
// keys until they are removed.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// Store is a [kv.Store] backed by a [goredis.Client].
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// New connects to the Redis server at addr (host:port), selecting db, and
// verifies the connection with PING.
func New(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis kv: ping %s: %w", addr, err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client. The Store takes ownership of it.
func NewFromClient(client *goredis.Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get implements [kv.Store].
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis kv: get %q: %w", key, err)
	}
	return v, true, nil
}

// Set implements [kv.Store].
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis kv: set %q: %w", key, err)
	}
	return nil
}

// Remove implements [kv.Store].
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis kv: remove %q: %w", key, err)
	}
	return nil
}

// Ping implements [kv.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements [kv.Store].
func (s *Store) Close() error {
	return s.client.Close()
}
