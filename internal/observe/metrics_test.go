package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttr returns the Int64 sum data points keyed by the value of attr.
func sumByAttr(t *testing.T, rm metricdata.ResourceMetrics, name, attr string) map[string]int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", name, met.Data)
	}
	out := make(map[string]int64, len(sum.DataPoints))
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(attr))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "system-design", true)
	m.RecordGeneration(ctx, "system-design", true)
	m.RecordGeneration(ctx, "sre", false)

	got := sumByAttr(t, collect(t, reader), "voxdrill.sessions.generated", "result")
	if got["ok"] != 2 || got["rejected"] != 1 {
		t.Errorf("generated by result = %v, want ok=2 rejected=1", got)
	}
}

func TestRecordAnswer(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnswer(ctx, "easy", 100)
	m.RecordAnswer(ctx, "hard", 35)

	rm := collect(t, reader)
	got := sumByAttr(t, rm, "voxdrill.answers.evaluated", "difficulty")
	if got["easy"] != 1 || got["hard"] != 1 {
		t.Errorf("answers by difficulty = %v", got)
	}

	met := findMetric(rm, "voxdrill.answer.score")
	if met == nil {
		t.Fatal("score histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("score metric is %T, want Histogram[int64]", met.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("got %d data points, want 1", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 || dp.Sum != 135 {
		t.Errorf("count=%d sum=%d, want 2 and 135", dp.Count, dp.Sum)
	}
}

func TestRecordCompletionAndStoreErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCompletion(ctx, "excellent")
	m.RecordStoreError(ctx, "save_current")
	m.RecordStoreError(ctx, "save_current")
	m.RecordStoreError(ctx, "history")
	m.RecordBreakerTransition(ctx, "postgres", "open")
	m.RecordToolCall(ctx, "evaluate_answer", "ok")

	rm := collect(t, reader)
	if got := sumByAttr(t, rm, "voxdrill.sessions.completed", "verdict"); got["excellent"] != 1 {
		t.Errorf("completed = %v", got)
	}
	if got := sumByAttr(t, rm, "voxdrill.store.errors", "op"); got["save_current"] != 2 || got["history"] != 1 {
		t.Errorf("store errors = %v", got)
	}
	if got := sumByAttr(t, rm, "voxdrill.breaker.transitions", "state"); got["open"] != 1 {
		t.Errorf("breaker transitions = %v", got)
	}
	if got := sumByAttr(t, rm, "voxdrill.tool.calls", "tool"); got["evaluate_answer"] != 1 {
		t.Errorf("tool calls = %v", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 3)
	m.ActiveSessions.Add(ctx, -1)

	met := findMetric(collect(t, reader), "voxdrill.active_sessions")
	if met == nil {
		t.Fatal("active sessions metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if sum.IsMonotonic {
		t.Error("active sessions should be an up/down counter")
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("active sessions data points = %+v, want value 2", sum.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
