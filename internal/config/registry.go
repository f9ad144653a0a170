package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

// ErrBackendNotRegistered is returned by [Registry.CreateStore] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: store backend not registered")

// StoreFactory opens a [kv.Store] from the store section of the config.
type StoreFactory func(ctx context.Context, cfg StoreConfig) (kv.Store, error)

// Registry maps store backend names to their constructors. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stores map[StoreBackend]StoreFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[StoreBackend]StoreFactory),
	}
}

// RegisterStore registers a backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterStore(name StoreBackend, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = factory
}

// CreateStore opens the backend selected by cfg.Backend.
// Returns [ErrBackendNotRegistered] if no factory has been registered for it.
func (r *Registry) CreateStore(ctx context.Context, cfg StoreConfig) (kv.Store, error) {
	r.mu.RLock()
	factory, ok := r.stores[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Backend)
	}
	store, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: open %s store: %w", cfg.Backend, err)
	}
	return store, nil
}

// Backends returns the registered backend names, sorted.
func (r *Registry) Backends() []StoreBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]StoreBackend, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
