package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newGroup returns a sqlite-then-memory group whose breakers trip after
// maxFailures consecutive failures.
func newGroup(maxFailures int) *FallbackGroup[string] {
	fg := NewFallbackGroup("sqlite", "sqlite", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: maxFailures, ResetTimeout: time.Hour},
	})
	fg.AddFallback("memory", "memory")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		down     map[string]bool
		wantUsed string
		wantErr  error
	}{
		{name: "primary serves", wantUsed: "sqlite"},
		{name: "fallback serves", down: map[string]bool{"sqlite": true}, wantUsed: "memory"},
		{name: "nothing serves", down: map[string]bool{"sqlite": true, "memory": true}, wantErr: ErrAllFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var used string
			err := newGroup(3).Execute(context.Background(), func(_ context.Context, v string) error {
				if tc.down[v] {
					return errDown
				}
				used = v
				return nil
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Execute = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil && !errors.Is(err, errDown) {
				t.Errorf("Execute = %v, want the backend error wrapped too", err)
			}
			if used != tc.wantUsed {
				t.Errorf("served by %q, want %q", used, tc.wantUsed)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenPrimary(t *testing.T) {
	t.Parallel()

	fg := newGroup(2)
	primaryCalls := 0
	for range 5 {
		_ = fg.Execute(context.Background(), func(_ context.Context, v string) error {
			if v == "sqlite" {
				primaryCalls++
				return errDown
			}
			return nil
		})
	}
	if primaryCalls != 2 {
		t.Errorf("primary called %d times, want 2", primaryCalls)
	}

	states := fg.States()
	if len(states) != 2 || states[0] != (EntryState{"sqlite", StateOpen}) || states[1] != (EntryState{"memory", StateClosed}) {
		t.Errorf("States = %+v, want [sqlite open, memory closed]", states)
	}
}

func TestFallbackGroup_StopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := newGroup(1).Execute(ctx, func(ctx context.Context, _ string) error {
		calls++
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrAllFailed) {
		t.Fatalf("Execute = %v, want bare context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	fg := newGroup(3)
	got, err := Do(context.Background(), fg, func(_ context.Context, v string) (int, error) {
		if v == "sqlite" {
			return 0, errDown
		}
		return len(v), nil
	})
	if err != nil || got != len("memory") {
		t.Fatalf("Do = %d, %v; want %d from the fallback", got, err, len("memory"))
	}

	if _, err := Do(context.Background(), fg, func(context.Context, string) (int, error) { return 0, errDown }); !errors.Is(err, ErrAllFailed) {
		t.Errorf("Do = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_Each(t *testing.T) {
	t.Parallel()

	var names []string
	newGroup(1).Each(func(name, _ string) { names = append(names, name) })
	if len(names) != 2 || names[0] != "sqlite" || names[1] != "memory" {
		t.Errorf("Each visited %v, want [sqlite memory]", names)
	}
}
