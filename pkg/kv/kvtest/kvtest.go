// Package kvtest holds the behavioural checks every [kv.Store] backend must
// pass. Backend packages call [Run] from their own tests.
package kvtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/voxdrill/pkg/kv"
)

// Run exercises store against the [kv.Store] contract. newStore must return
// a fresh, empty store; the caller owns closing it.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		v, found, err := s.Get(context.Background(), "missing")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if found || v != "" {
			t.Errorf("Get = (%q, %v), want (\"\", false)", v, found)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Set(ctx, "k", `{"a":1}`); err != nil {
			t.Fatalf("Set: %v", err)
		}
		v, found, err := s.Get(ctx, "k")
		if err != nil || !found || v != `{"a":1}` {
			t.Errorf("Get = (%q, %v, %v)", v, found, err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_ = s.Set(ctx, "k", "one")
		if err := s.Set(ctx, "k", "two"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if v, _, _ := s.Get(ctx, "k"); v != "two" {
			t.Errorf("Get = %q, want two", v)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_ = s.Set(ctx, "k", "v")
		if err := s.Remove(ctx, "k"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if _, found, _ := s.Get(ctx, "k"); found {
			t.Error("key present after Remove")
		}
		if err := s.Remove(ctx, "k"); err != nil {
			t.Errorf("Remove missing key: %v", err)
		}
	})

	t.Run("large value", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		big := strings.Repeat("x", 256*1024)
		if err := s.Set(ctx, "big", big); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if v, _, _ := s.Get(ctx, "big"); v != big {
			t.Errorf("Get returned %d bytes, want %d", len(v), len(big))
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Set(ctx, fmt.Sprintf("c%d", i), "v"); err != nil {
					t.Errorf("Set c%d: %v", i, err)
				}
			}()
		}
		wg.Wait()
		for i := range 16 {
			if _, found, _ := s.Get(ctx, fmt.Sprintf("c%d", i)); !found {
				t.Errorf("c%d missing", i)
			}
		}
	})
}
