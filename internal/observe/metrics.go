// Package observe provides application-wide observability primitives for
// voxdrill: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// Prometheus scraping by the registry [Setup] installs. [DefaultMetrics]
// binds to the global meter provider; tests use [NewMetrics] with their own
// provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxdrill metrics.
const meterName = "github.com/MrWong99/voxdrill"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Practice engine ---

	// SessionsGenerated counts generation attempts. Use with attributes:
	//   attribute.String("result", "ok"|"rejected"), attribute.String("channel", ...)
	SessionsGenerated metric.Int64Counter

	// AnswersEvaluated counts scored answers. Use with attribute:
	//   attribute.String("difficulty", ...)
	AnswersEvaluated metric.Int64Counter

	// AnswerScore records the distribution of answer scores (0–100).
	AnswerScore metric.Int64Histogram

	// SessionsCompleted counts finished sessions. Use with attribute:
	//   attribute.String("verdict", ...)
	SessionsCompleted metric.Int64Counter

	// ActiveSessions tracks sessions begun but not yet finished.
	ActiveSessions metric.Int64UpDownCounter

	// --- Persistence ---

	// StoreErrors counts absorbed session store failures. Use with attribute:
	//   attribute.String("op", ...)
	StoreErrors metric.Int64Counter

	// StoreDuration tracks session store latency. Use with attribute:
	//   attribute.String("op", ...)
	StoreDuration metric.Float64Histogram

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes: attribute.String("backend", ...), attribute.String("state", ...)
	BreakerTransitions metric.Int64Counter

	// --- Host surfaces ---

	// ToolCalls counts MCP tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   method, path (route template) and status (status class, e.g. 4xx).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for store
// and HTTP latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// scoreBuckets splits answer scores along the feedback and verdict bands.
var scoreBuckets = []float64{20, 40, 50, 60, 80, 100}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsGenerated, err = m.Int64Counter("voxdrill.sessions.generated",
		metric.WithDescription("Voice session generation attempts by result and channel."),
	); err != nil {
		return nil, err
	}
	if met.AnswersEvaluated, err = m.Int64Counter("voxdrill.answers.evaluated",
		metric.WithDescription("Answers scored by micro-question difficulty."),
	); err != nil {
		return nil, err
	}
	if met.AnswerScore, err = m.Int64Histogram("voxdrill.answer.score",
		metric.WithDescription("Distribution of answer scores."),
		metric.WithUnit("{score}"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("voxdrill.sessions.completed",
		metric.WithDescription("Completed practice sessions by verdict."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxdrill.active_sessions",
		metric.WithDescription("Practice sessions begun and not yet finished."),
	); err != nil {
		return nil, err
	}

	if met.StoreErrors, err = m.Int64Counter("voxdrill.store.errors",
		metric.WithDescription("Session store failures absorbed, by operation."),
	); err != nil {
		return nil, err
	}
	if met.StoreDuration, err = m.Float64Histogram("voxdrill.store.duration",
		metric.WithDescription("Session store latency by operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("voxdrill.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by backend and new state."),
	); err != nil {
		return nil, err
	}

	if met.ToolCalls, err = m.Int64Counter("voxdrill.tool.calls",
		metric.WithDescription("MCP tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxdrill.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status class."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneration records one generation attempt for channel.
func (m *Metrics) RecordGeneration(ctx context.Context, channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.SessionsGenerated.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("result", result),
			attribute.String("channel", channel),
		),
	)
}

// RecordAnswer records one scored answer.
func (m *Metrics) RecordAnswer(ctx context.Context, difficulty string, score int) {
	m.AnswersEvaluated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("difficulty", difficulty)),
	)
	m.AnswerScore.Record(ctx, int64(score))
}

// RecordCompletion records a finished session with its verdict.
func (m *Metrics) RecordCompletion(ctx context.Context, verdict string) {
	m.SessionsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", verdict)),
	)
}

// RecordStoreError records an absorbed store failure for op.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordStoreDuration records the latency of one store operation.
func (m *Metrics) RecordStoreDuration(ctx context.Context, op string, d time.Duration) {
	m.StoreDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordBreakerTransition records a circuit breaker entering state.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, backend, state string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("state", state),
		),
	)
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}
