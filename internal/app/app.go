// Package app wires all voxdrill subsystems into a running application.
//
// The App struct owns the full lifecycle: New loads the question banks,
// connects the session store and assembles the practice engine, Run serves
// the HTTP API (and optionally watches the config file) until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithBackend,
// WithCatalog, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxdrill/internal/api"
	"github.com/MrWong99/voxdrill/internal/config"
	"github.com/MrWong99/voxdrill/internal/content"
	"github.com/MrWong99/voxdrill/internal/evaluator"
	"github.com/MrWong99/voxdrill/internal/generator"
	"github.com/MrWong99/voxdrill/internal/health"
	"github.com/MrWong99/voxdrill/internal/mcpserver"
	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/phrase"
	"github.com/MrWong99/voxdrill/internal/resilience"
	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/internal/transcript/phonetic"
	"github.com/MrWong99/voxdrill/pkg/kv"
	"github.com/MrWong99/voxdrill/pkg/kv/memory"
)

const (
	readHeaderTimeout      = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	registry *config.Registry
	metrics  *observe.Metrics
	scrape   http.Handler
	levelVar *slog.LevelVar

	// configPath enables the hot-reload watcher in Run when set.
	configPath string

	// Subsystems, initialised in New and torn down in Shutdown.
	backend  kv.Store
	fallback *resilience.KVFallback
	catalog  *content.MemRepository
	store    *session.Store
	practice *session.Practice
	health   *health.Handler
	api      *api.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithBackend injects a key-value backend instead of creating one from the
// store config. The backend is still closed on Shutdown.
func WithBackend(s kv.Store) Option {
	return func(a *App) { a.backend = s }
}

// WithCatalog injects a question catalog instead of loading content.banks.
func WithCatalog(c *content.MemRepository) Option {
	return func(a *App) { a.catalog = c }
}

// WithRegistry replaces the built-in store registry.
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.scrape = h }
}

// WithLevelVar lets a config reload change the log level of the handler
// that owns lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.levelVar = lv }
}

// WithConfigWatch makes Run poll path and apply hot-reloadable changes.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.configPath = path }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It performs all
// initialisation synchronously: bank loading, backend connection and engine
// assembly.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.registry == nil {
		a.registry = NewStoreRegistry()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Question banks ────────────────────────────────────────────────
	if err := a.initCatalog(ctx); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 2. Session store backend ─────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Practice engine ───────────────────────────────────────────────
	a.initPractice()

	// ── 4. Health checks + HTTP API ──────────────────────────────────────
	a.initAPI()

	slog.Info("app initialised",
		"questions", a.catalog.Len(),
		"channels", a.catalog.Channels(),
		"store", a.cfg.Store.Backend,
		"fallback_to_memory", a.cfg.Store.FallbackToMemory,
	)
	return a, nil
}

func (a *App) initCatalog(ctx context.Context) error {
	if a.catalog != nil {
		return nil
	}
	if len(a.cfg.Content.Banks) == 0 {
		slog.Warn("no question banks configured, starting with an empty catalog")
		a.catalog = content.NewMemRepository()
		return nil
	}
	repo, err := content.LoadRepository(ctx, a.cfg.Content.Banks...)
	if err != nil {
		return err
	}
	a.catalog = repo
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	scfg := a.cfg.Store
	if a.backend == nil {
		backend, err := a.registry.CreateStore(ctx, scfg)
		if err != nil {
			return err
		}
		a.backend = backend
	}

	// An in-process map neither fails nor needs a breaker.
	if scfg.Backend == config.BackendMemory {
		a.closers = append(a.closers, a.backend.Close)
		return nil
	}

	a.fallback = resilience.NewKVFallback(a.backend, string(scfg.Backend), resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  scfg.Breaker.MaxFailures,
			ResetTimeout: scfg.Breaker.ResetTimeout,
			HalfOpenMax:  scfg.Breaker.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("store circuit breaker changed state", "backend", name, "from", from, "to", to)
				a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
			},
		},
	})
	if scfg.FallbackToMemory {
		a.fallback.AddFallback("memory", memory.New())
	}
	a.backend = a.fallback
	a.closers = append(a.closers, a.fallback.Close)
	return nil
}

func (a *App) initPractice() {
	table := phrase.DefaultTable().Merge(phrase.Table(a.cfg.Tables.Phrases))
	gen := generator.New(phrase.New(table), generator.WithTemplates(generator.TemplateSets(a.cfg.Tables.Templates)))

	var evOpts []evaluator.Option
	if ev := a.cfg.Evaluation; ev.Phonetic {
		var spOpts []phonetic.Option
		if ev.PhoneticThreshold > 0 {
			spOpts = append(spOpts, phonetic.WithPhoneticThreshold(ev.PhoneticThreshold))
		}
		if ev.FuzzyThreshold > 0 {
			spOpts = append(spOpts, phonetic.WithFuzzyThreshold(ev.FuzzyThreshold))
		}
		evOpts = append(evOpts, evaluator.WithSpotter(phonetic.New(spOpts...)))
	}
	ctrl := session.NewController(evaluator.New(evOpts...))

	a.store = session.NewStore(a.backend,
		session.WithKeyPrefix(a.cfg.Store.KeyPrefix),
		session.WithHistoryLimit(a.cfg.Store.HistoryLimit),
		session.WithStoreMetrics(a.metrics),
	)
	a.practice = session.NewPractice(a.catalog, gen, ctrl, a.store, session.WithPracticeMetrics(a.metrics))
}

func (a *App) initAPI() {
	checks := []health.Checker{
		health.Ping("store", a.backend),
		health.Degraded("session_store", a.store.IsDegraded),
	}
	if a.fallback != nil {
		checks = append(checks, health.Degraded("store_breaker", a.breakerOpen))
	}
	a.health = health.New(checks...)
	opts := []api.Option{
		api.WithJWTSecret(a.cfg.Server.JWTSecret),
		api.WithHealth(a.health),
		api.WithMetrics(a.metrics),
	}
	if a.scrape != nil {
		opts = append(opts, api.WithMetricsHandler(a.scrape))
	}
	a.api = api.New(a.practice, a.catalog, opts...)
}

// breakerOpen reports whether the primary backend's breaker is not closed,
// meaning calls are being served by a fallback or rejected.
func (a *App) breakerOpen() bool {
	states := a.fallback.States()
	return len(states) > 0 && states[0].State != resilience.StateClosed
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Practice returns the practice service.
func (a *App) Practice() *session.Practice { return a.practice }

// Catalog returns the loaded question catalog.
func (a *App) Catalog() *content.MemRepository { return a.catalog }

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler { return a.api.Handler() }

// MCPServer returns an MCP server exposing the practice tools.
func (a *App) MCPServer(version string) *mcpserver.Server {
	return mcpserver.New(a.practice,
		mcpserver.WithSearcher(a.catalog),
		mcpserver.WithMetrics(a.metrics),
		mcpserver.WithVersion(version),
	)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API on cfg.Server.ListenAddr and blocks until ctx is
// cancelled or the server fails. On cancellation the server is shut down
// gracefully within cfg.Server.ShutdownTimeout and Run returns nil.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.cfg.Server.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. Tests use it with port 0.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve http: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown http: %w", err)
		}
		return nil
	})
	if a.configPath != "" {
		g.Go(func() error {
			return a.watchConfig(gctx)
		})
	}
	return g.Wait()
}

// watchConfig polls the config file until ctx is done.
func (a *App) watchConfig(ctx context.Context) error {
	w, err := config.NewWatcher(a.configPath, a.applyConfig)
	if err != nil {
		// A config that was good at startup but broke since is not fatal.
		slog.Warn("config watcher disabled", "path", a.configPath, "error", err)
		return nil
	}
	return w.Run(ctx)
}

// applyConfig applies the hot-reloadable part of a config change and warns
// about the rest.
func (a *App) applyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.levelVar != nil {
		a.levelVar.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RestartRequired {
		slog.Warn("config changed in sections that need a restart", "sections", d.RestartFields)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
