// Package mock provides a test double for [kv.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. Values written with Set are
// kept in an in-memory map so reads observe earlier writes unless an error
// field is set. It is safe for concurrent use via an internal [sync.Mutex].
//
// Typical usage:
//
//	store := &mock.Store{}
//	store.SetErr = errors.New("backend down")
//
//	// inject store into the system under test …
//
//	if got := store.CallCount("Set"); got != 1 {
//	    t.Errorf("expected 1 Set call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

var _ kv.Store = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable test double for [kv.Store]. All exported *Err
// fields default to nil (success).
type Store struct {
	mu sync.Mutex

	calls []Call
	data  map[string]string

	// GetErr is returned by [Store.Get] when non-nil.
	GetErr error

	// SetErr is returned by [Store.Set] when non-nil. The value is not
	// stored.
	SetErr error

	// RemoveErr is returned by [Store.Remove] when non-nil.
	RemoveErr error

	// PingErr is returned by [Store.Ping] when non-nil.
	PingErr error

	// CloseErr is returned by [Store.Close] when non-nil.
	CloseErr error
}

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls without altering stored data or response
// configuration.
func (m *Store) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Put seeds key with value without recording a call.
func (m *Store) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
}

// Value returns the stored value for key without recording a call.
func (m *Store) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Get implements [kv.Store].
func (m *Store) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Get", Args: []any{key}})
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements [kv.Store].
func (m *Store) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Set", Args: []any{key, value}})
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// Remove implements [kv.Store].
func (m *Store) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Remove", Args: []any{key}})
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.data, key)
	return nil
}

// Ping implements [kv.Store].
func (m *Store) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Ping"})
	return m.PingErr
}

// Close implements [kv.Store].
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Close"})
	return m.CloseErr
}
