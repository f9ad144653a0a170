package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] could serve a
// call.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig is the breaker template applied to every entry of a
// [FallbackGroup]. Each entry gets its own breaker named after the entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup tries a primary backend and then each fallback in
// registration order, skipping entries whose breaker is open.
//
// Register every fallback before sharing the group.
type FallbackGroup[T any] struct {
	cfg     FallbackConfig
	entries []fallbackEntry[T]
}

// NewFallbackGroup returns a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry tried after all earlier ones.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	cb := fg.cfg.CircuitBreaker
	cb.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{name: name, value: value, breaker: NewCircuitBreaker(cb)})
}

// Execute runs fn against the first entry that succeeds.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(context.Context, T) error) error {
	_, err := Do(ctx, fg, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return err
}

// Do runs fn against the first entry that succeeds and returns its result.
// It stops early with ctx's error once ctx is done. When every entry fails
// the error wraps [ErrAllFailed] and the last entry's error.
func Do[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		e := &fg.entries[i]

		var out R
		err := e.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = fn(ctx, e.value)
			return err
		})
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("backend skipped, circuit open", "backend", e.name)
		} else {
			slog.Warn("backend call failed", "backend", e.name, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

// EntryState is one entry's breaker state.
type EntryState struct {
	Name  string
	State State
}

// States lists every entry's breaker state in registration order.
func (fg *FallbackGroup[T]) States() []EntryState {
	out := make([]EntryState, 0, len(fg.entries))
	for _, e := range fg.entries {
		out = append(out, EntryState{Name: e.name, State: e.breaker.State()})
	}
	return out
}

// Each calls fn for every entry regardless of breaker state.
func (fg *FallbackGroup[T]) Each(fn func(name string, value T)) {
	for _, e := range fg.entries {
		fn(e.name, e.value)
	}
}
