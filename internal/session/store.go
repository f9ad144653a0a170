package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/pkg/kv"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	// DefaultKeyPrefix namespaces every key written by a [Store].
	DefaultKeyPrefix = "voxdrill"

	// DefaultHistoryLimit is the number of results kept per learner.
	DefaultHistoryLimit = 20

	currentSuffix = "current-session"
	historySuffix = "history"
)

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithKeyPrefix replaces [DefaultKeyPrefix]. Empty prefixes are ignored.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithHistoryLimit sets how many results History retains. Values below 1
// are ignored.
func WithHistoryLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithStoreMetrics records store errors and latencies on m.
func WithStoreMetrics(m *observe.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store persists a learner's in-flight [practice.SessionState] and a bounded
// history of [practice.SessionResult]s on a [kv.Store].
//
// Every failure is absorbed: encoding errors, backend errors and corrupt
// data are logged, counted and turned into "nothing saved" or "nothing
// found". IsDegraded reports whether the most recent backend call failed so
// hosts can surface that resume is unavailable.
//
// Concurrent writers to the same learner are not arbitrated; the last write
// wins. All methods are safe for concurrent use.
type Store struct {
	kv       kv.Store
	prefix   string
	limit    int
	metrics  *observe.Metrics
	degraded atomic.Bool
}

// NewStore returns a Store writing to backend.
func NewStore(backend kv.Store, opts ...StoreOption) *Store {
	s := &Store{
		kv:     backend,
		prefix: DefaultKeyPrefix,
		limit:  DefaultHistoryLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CurrentKey returns the key holding learner's in-flight session.
func (s *Store) CurrentKey(learner string) string {
	return s.prefix + ":" + learner + ":" + currentSuffix
}

// HistoryKey returns the key holding learner's result history.
func (s *Store) HistoryKey(learner string) string {
	return s.prefix + ":" + learner + ":" + historySuffix
}

// HistoryLimit returns the number of results History retains.
func (s *Store) HistoryLimit() int { return s.limit }

// SaveCurrent stores state as learner's in-flight session.
func (s *Store) SaveCurrent(ctx context.Context, learner string, state practice.SessionState) {
	_ = s.saveCurrent(ctx, learner, state)
}

// saveCurrent is SaveCurrent reporting whether the state was written.
func (s *Store) saveCurrent(ctx context.Context, learner string, state practice.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		s.fail(ctx, "save_current", "encode session state", false, err, "learner", learner)
		return err
	}
	return s.set(ctx, "save_current", s.CurrentKey(learner), string(data), learner)
}

// LoadCurrent returns learner's in-flight session. It reports false when
// nothing is saved, the backend fails or the saved data cannot be decoded.
func (s *Store) LoadCurrent(ctx context.Context, learner string) (practice.SessionState, bool) {
	raw, ok, _ := s.read(ctx, "load_current", s.CurrentKey(learner), learner)
	if !ok {
		return practice.SessionState{}, false
	}
	var state practice.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.fail(ctx, "load_current", "decode session state", false, err, "learner", learner)
		return practice.SessionState{}, false
	}
	if !state.Status.IsValid() {
		slog.Warn("session store: ignoring saved session with unknown status",
			"learner", learner,
			"status", state.Status,
		)
		return practice.SessionState{}, false
	}
	if state.Answers == nil {
		state.Answers = []practice.MicroAnswer{}
	}
	return state, true
}

// ClearCurrent removes learner's in-flight session.
func (s *Store) ClearCurrent(ctx context.Context, learner string) {
	start := time.Now()
	err := s.kv.Remove(ctx, s.CurrentKey(learner))
	s.observe(ctx, "clear_current", start)
	if err != nil {
		s.fail(ctx, "clear_current", "remove", true, err, "learner", learner)
		return
	}
	s.degraded.Store(false)
}

// AppendResult inserts r at the front of learner's history and drops the
// oldest entries beyond the history limit. When the existing history cannot
// be read the write is skipped so the stored history is not overwritten.
func (s *Store) AppendResult(ctx context.Context, learner string, r practice.SessionResult) {
	history, err := s.history(ctx, learner)
	if err != nil {
		slog.Warn("session store: skipping history write after failed read",
			"learner", learner,
			"session_id", r.SessionID,
		)
		return
	}
	history = insertFront(history, r, s.limit)

	data, err := json.Marshal(history)
	if err != nil {
		s.fail(ctx, "append_result", "encode history", false, err, "learner", learner)
		return
	}
	_ = s.set(ctx, "append_result", s.HistoryKey(learner), string(data), learner)
}

// History returns learner's results, newest first. It never returns nil.
func (s *Store) History(ctx context.Context, learner string) []practice.SessionResult {
	history, _ := s.history(ctx, learner)
	return history
}

// history returns the stored results. The error is non-nil only for a
// backend failure; missing or corrupt data yields an empty history.
func (s *Store) history(ctx context.Context, learner string) ([]practice.SessionResult, error) {
	raw, ok, err := s.read(ctx, "history", s.HistoryKey(learner), learner)
	if err != nil {
		return []practice.SessionResult{}, err
	}
	if !ok {
		return []practice.SessionResult{}, nil
	}
	var history []practice.SessionResult
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.fail(ctx, "history", "decode history", false, err, "learner", learner)
		return []practice.SessionResult{}, nil
	}
	if history == nil {
		return []practice.SessionResult{}, nil
	}
	if len(history) > s.limit {
		history = history[:s.limit]
	}
	return history, nil
}

// IsDegraded reports whether the most recent backend operation failed.
func (s *Store) IsDegraded() bool {
	return s.degraded.Load()
}

// insertFront returns a new slice with r followed by at most limit-1
// entries of history.
func insertFront(history []practice.SessionResult, r practice.SessionResult, limit int) []practice.SessionResult {
	keep := min(len(history), limit-1)
	out := make([]practice.SessionResult, 0, keep+1)
	out = append(out, r)
	return append(out, history[:keep]...)
}

// read returns the value at key. A backend failure is logged, counted and
// returned.
func (s *Store) read(ctx context.Context, op, key, learner string) (string, bool, error) {
	start := time.Now()
	raw, ok, err := s.kv.Get(ctx, key)
	s.observe(ctx, op, start)
	if err != nil {
		s.fail(ctx, op, "read", true, err, "learner", learner, "key", key)
		return "", false, err
	}
	s.degraded.Store(false)
	return raw, ok, nil
}

func (s *Store) set(ctx context.Context, op, key, value, learner string) error {
	start := time.Now()
	err := s.kv.Set(ctx, key, value)
	s.observe(ctx, op, start)
	if err != nil {
		s.fail(ctx, op, "write", true, err, "learner", learner, "key", key)
		return err
	}
	s.degraded.Store(false)
	return nil
}

// fail logs and counts an absorbed error. Only backend failures mark the
// store degraded; corrupt data does not.
func (s *Store) fail(ctx context.Context, op, what string, backend bool, err error, args ...any) {
	if backend {
		s.degraded.Store(true)
	}
	slog.Warn("session store: "+what+" failed, continuing without persistence",
		append([]any{"op", op, "error", err}, args...)...,
	)
	if s.metrics != nil {
		s.metrics.RecordStoreError(ctx, op)
	}
}

func (s *Store) observe(ctx context.Context, op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStoreDuration(ctx, op, time.Since(start))
}
