// Package api serves the practice engine over HTTP.
//
// Routes are registered on a gorilla/mux router: question browsing under
// /v1/questions, the per-learner practice flow under /v1/practice, a live
// websocket at /v1/practice/live, plus /healthz, /readyz and /metrics.
// Every request is traced and timed by [observe.Middleware] using the mux
// route template as its label.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voxdrill/internal/content"
	"github.com/MrWong99/voxdrill/internal/health"
	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

// Catalog is the question source browsed by the API.
type Catalog interface {
	content.Repository

	// List returns the questions of channel, or all questions when channel
	// is empty.
	List(ctx context.Context, channel string) []practice.Question

	// Search returns at most limit questions fuzzily matching query.
	Search(ctx context.Context, query string, limit int) []practice.Question
}

var _ Catalog = (*content.MemRepository)(nil)

// Option configures a [Server].
type Option func(*Server)

// WithJWTSecret requires an HS256 bearer token on every /v1 request and
// takes the learner id from its subject. An empty secret leaves the
// X-Learner-ID header in charge.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.jwtSecret = []byte(secret)
		}
	}
}

// WithHealth serves /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics records request durations on m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMetricsHandler replaces the default promhttp handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithOriginPatterns lists the host patterns allowed to open the live
// websocket from a browser. Same-origin requests are always accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = append(s.originPatterns, patterns...)
	}
}

// Server holds the HTTP handlers. It carries no per-request state and is
// safe for concurrent use.
type Server struct {
	practice       *session.Practice
	catalog        Catalog
	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
	jwtSecret      []byte
	originPatterns []string
}

// New creates a Server for p and catalog.
func New(p *session.Practice, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		practice: p,
		catalog:  catalog,
	}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	return s
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(observe.Middleware(s.metrics,
		observe.WithRouteLabel(routeTemplate),
		observe.WithQuietRoutes("/healthz", "/readyz", "/metrics"),
	))

	s.health.Register(r)
	r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.identify)

	v1.HandleFunc("/questions", s.listQuestions).Methods(http.MethodGet)
	v1.HandleFunc("/questions/{id}", s.getQuestion).Methods(http.MethodGet)
	v1.HandleFunc("/questions/{id}/session", s.previewSession).Methods(http.MethodGet)

	v1.HandleFunc("/practice", s.begin).Methods(http.MethodPost)
	v1.HandleFunc("/practice/current", s.current).Methods(http.MethodGet)
	v1.HandleFunc("/practice/answer", s.answer).Methods(http.MethodPost)
	v1.HandleFunc("/practice/next", s.next).Methods(http.MethodPost)
	v1.HandleFunc("/practice/finish", s.finish).Methods(http.MethodPost)
	v1.HandleFunc("/practice/history", s.history).Methods(http.MethodGet)
	v1.HandleFunc("/practice/live", s.live).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// routeTemplate labels requests by their mux path template so that
// metrics do not grow one series per question id.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, session.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotPracticable),
		errors.Is(err, session.ErrUnknownMicroQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrAlreadyAnswered),
		errors.Is(err, session.ErrSessionCompleted),
		errors.Is(err, session.ErrNoCurrentQuestion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
