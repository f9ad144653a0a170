package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/kv/memory"
	kvmock "github.com/MrWong99/voxdrill/pkg/kv/mock"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

func TestStore_Keys(t *testing.T) {
	t.Parallel()

	s := session.NewStore(memory.New())
	if got := s.CurrentKey("ada"); got != "voxdrill:ada:current-session" {
		t.Errorf("CurrentKey = %q", got)
	}
	if got := s.HistoryKey("ada"); got != "voxdrill:ada:history" {
		t.Errorf("HistoryKey = %q", got)
	}

	custom := session.NewStore(memory.New(), session.WithKeyPrefix("drill"), session.WithKeyPrefix(""))
	if got := custom.CurrentKey("ada"); got != "drill:ada:current-session" {
		t.Errorf("prefixed CurrentKey = %q", got)
	}
}

func TestStore_CurrentRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := session.NewStore(memory.New())

	if _, ok := s.LoadCurrent(ctx, "ada"); ok {
		t.Fatal("LoadCurrent on empty store reported a session")
	}

	c := newController()
	state, err := c.SubmitAnswer(c.Start(fixtureSession(3)), goodAnswer)
	if err != nil {
		t.Fatal(err)
	}
	s.SaveCurrent(ctx, "ada", state)

	got, ok := s.LoadCurrent(ctx, "ada")
	if !ok {
		t.Fatal("LoadCurrent after save reported nothing")
	}
	if got.Session.ID != state.Session.ID || got.Status != state.Status || len(got.Answers) != 1 {
		t.Errorf("loaded state = %+v", got)
	}
	if !got.StartedAt.Equal(state.StartedAt) {
		t.Errorf("startedAt = %v, want %v", got.StartedAt, state.StartedAt)
	}

	if _, ok := s.LoadCurrent(ctx, "grace"); ok {
		t.Error("learners must not share sessions")
	}

	s.ClearCurrent(ctx, "ada")
	if _, ok := s.LoadCurrent(ctx, "ada"); ok {
		t.Error("LoadCurrent after clear reported a session")
	}
}

func TestStore_CorruptData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &kvmock.Store{}
	s := session.NewStore(backend)
	backend.Put(s.CurrentKey("ada"), "{not json")
	backend.Put(s.HistoryKey("ada"), `{"an":"object"}`)
	backend.Put(s.CurrentKey("bob"), `{"status":"paused"}`)

	if _, ok := s.LoadCurrent(ctx, "ada"); ok {
		t.Error("corrupt session loaded")
	}
	if got := s.History(ctx, "ada"); got == nil || len(got) != 0 {
		t.Errorf("corrupt history = %v, want empty", got)
	}
	if _, ok := s.LoadCurrent(ctx, "bob"); ok {
		t.Error("session with unknown status loaded")
	}
	if s.IsDegraded() {
		t.Error("corrupt data must not mark the backend degraded")
	}
}

func TestStore_BackendFailuresAreAbsorbed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	down := errors.New("connection refused")
	backend := &kvmock.Store{GetErr: down, SetErr: down, RemoveErr: down}
	s := session.NewStore(backend, session.WithStoreMetrics(m))

	s.SaveCurrent(ctx, "ada", practice.SessionState{Status: practice.StatusIntro})
	if !s.IsDegraded() {
		t.Error("failed save did not mark the store degraded")
	}
	if _, ok := s.LoadCurrent(ctx, "ada"); ok {
		t.Error("LoadCurrent on failing backend reported a session")
	}
	s.ClearCurrent(ctx, "ada")
	s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: "x"})
	if h := s.History(ctx, "ada"); len(h) != 0 {
		t.Errorf("History on failing backend = %v", h)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	var errorsRecorded int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "voxdrill.store.errors" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				errorsRecorded += dp.Value
			}
		}
	}
	// save, load, clear, append (history read only), history.
	if errorsRecorded != 5 {
		t.Errorf("store errors recorded = %d, want 5", errorsRecorded)
	}

	// Recovery clears the degraded flag.
	backend.GetErr, backend.SetErr, backend.RemoveErr = nil, nil, nil
	s.SaveCurrent(ctx, "ada", practice.SessionState{Status: practice.StatusIntro})
	if s.IsDegraded() {
		t.Error("successful save did not clear degraded")
	}
}

func TestStore_FailedHistoryReadKeepsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := &kvmock.Store{}
	s := session.NewStore(backend)

	for i := range 5 {
		s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: fmt.Sprintf("s-%d", i)})
	}

	backend.GetErr = errors.New("read timeout")
	s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: "lost"})
	backend.GetErr = nil

	s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: "s-5"})
	h := s.History(ctx, "ada")
	if len(h) != 6 {
		t.Fatalf("history length = %d, want 6", len(h))
	}
	if h[0].SessionID != "s-5" || h[5].SessionID != "s-0" {
		t.Errorf("history = %s ... %s, want s-5 ... s-0", h[0].SessionID, h[5].SessionID)
	}
}

func TestStore_CorruptHistoryIsReplaced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := memory.New()
	s := session.NewStore(backend)
	if err := backend.Set(ctx, s.HistoryKey("ada"), "{not json"); err != nil {
		t.Fatal(err)
	}

	s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: "fresh"})
	if h := s.History(ctx, "ada"); len(h) != 1 || h[0].SessionID != "fresh" {
		t.Errorf("history = %+v, want only fresh", h)
	}
}

func TestStore_HistoryIsBoundedNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := session.NewStore(memory.New())

	if s.HistoryLimit() != 20 {
		t.Fatalf("default history limit = %d, want 20", s.HistoryLimit())
	}
	for i := range 25 {
		s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: fmt.Sprintf("s-%02d", i)})
	}

	h := s.History(ctx, "ada")
	if len(h) != 20 {
		t.Fatalf("history length = %d, want 20", len(h))
	}
	if h[0].SessionID != "s-24" || h[19].SessionID != "s-05" {
		t.Errorf("history = %s ... %s, want s-24 ... s-05", h[0].SessionID, h[19].SessionID)
	}
}

func TestStore_HistoryLimitOption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := memory.New()

	// An older writer may have left more entries than the limit.
	long := make([]practice.SessionResult, 5)
	for i := range long {
		long[i] = practice.SessionResult{SessionID: fmt.Sprintf("old-%d", i)}
	}
	raw, _ := json.Marshal(long)
	s := session.NewStore(backend, session.WithHistoryLimit(3), session.WithHistoryLimit(0))
	if err := backend.Set(ctx, s.HistoryKey("ada"), string(raw)); err != nil {
		t.Fatal(err)
	}

	if h := s.History(ctx, "ada"); len(h) != 3 {
		t.Errorf("history length = %d, want 3", len(h))
	}

	s.AppendResult(ctx, "ada", practice.SessionResult{SessionID: "new"})
	h := s.History(ctx, "ada")
	if len(h) != 3 || h[0].SessionID != "new" || h[1].SessionID != "old-0" || h[2].SessionID != "old-1" {
		t.Errorf("history after append = %+v", h)
	}
}
