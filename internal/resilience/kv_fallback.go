package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

// KVFallback implements [kv.Store] with automatic failover across several
// stores. Each store has its own circuit breaker; when the primary fails or
// its breaker is open, the next healthy fallback serves the call.
//
// Fallbacks do not replicate: values written to a fallback while the primary
// is down are not copied back when it recovers.
type KVFallback struct {
	group *FallbackGroup[kv.Store]
}

var _ kv.Store = (*KVFallback)(nil)

// NewKVFallback creates a [KVFallback] with primary as the preferred store.
func NewKVFallback(primary kv.Store, primaryName string, cfg FallbackConfig) *KVFallback {
	return &KVFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional store as a fallback.
func (f *KVFallback) AddFallback(name string, store kv.Store) {
	f.group.AddFallback(name, store)
}

// Get implements [kv.Store].
func (f *KVFallback) Get(ctx context.Context, key string) (string, bool, error) {
	type result struct {
		value string
		found bool
	}
	r, err := Do(ctx, f.group, func(ctx context.Context, s kv.Store) (result, error) {
		v, found, err := s.Get(ctx, key)
		return result{value: v, found: found}, err
	})
	return r.value, r.found, err
}

// Set implements [kv.Store].
func (f *KVFallback) Set(ctx context.Context, key, value string) error {
	return f.group.Execute(ctx, func(ctx context.Context, s kv.Store) error {
		return s.Set(ctx, key, value)
	})
}

// Remove implements [kv.Store].
func (f *KVFallback) Remove(ctx context.Context, key string) error {
	return f.group.Execute(ctx, func(ctx context.Context, s kv.Store) error {
		return s.Remove(ctx, key)
	})
}

// Ping implements [kv.Store]. It succeeds while any store is reachable.
func (f *KVFallback) Ping(ctx context.Context) error {
	return f.group.Execute(ctx, func(ctx context.Context, s kv.Store) error {
		return s.Ping(ctx)
	})
}

// Close implements [kv.Store]. Every store is closed; errors are joined.
func (f *KVFallback) Close() error {
	var errs []error
	f.group.Each(func(_ string, s kv.Store) {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// States reports the breaker state of every store, primary first.
func (f *KVFallback) States() []EntryState {
	return f.group.States()
}
