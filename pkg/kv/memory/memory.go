// Package memory provides an in-process [kv.Store] backed by a map. It is the
// default backend and the fallback used when a remote backend is down.
package memory

import (
	"context"
	"sync"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

var _ kv.Store = (*Store)(nil)

// Store is a map-backed [kv.Store]. The zero value is not usable; call [New].
type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get implements [kv.Store].
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, kv.ErrClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set implements [kv.Store].
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	s.data[key] = value
	return nil
}

// Remove implements [kv.Store].
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	delete(s.data, key)
	return nil
}

// Ping implements [kv.Store].
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kv.ErrClosed
	}
	return nil
}

// Close implements [kv.Store]. Stored data is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
