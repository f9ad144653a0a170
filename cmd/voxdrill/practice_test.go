package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/voxdrill/internal/app"
	"github.com/MrWong99/voxdrill/internal/config"
	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/session"
)

const testBank = `bank:
  name: cli bank
  channel: system-design
questions:
  - id: sd-001
    question: "How would you scale a read-heavy service?"
    answer: "Put a cache in front of the database. Add an index for hot queries."
    voice_keywords: [cache, database, index, shard, replica, queue]
  - id: thin-001
    question: "What is a CDN?"
    voice_keywords: [edge, cache]
`

func writeTestBank(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bank.yaml"), []byte(testBank), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "*.yaml")
}

func newTestPractice(t *testing.T) *session.Practice {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Content.Banks = []string{writeTestBank(t)}
	a, err := app.New(context.Background(), cfg, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a.Practice()
}

func TestRunPractice_FullSession(t *testing.T) {
	t.Parallel()
	p := newTestPractice(t)

	in := strings.NewReader(strings.Join([]string{
		"A cache sits in front of the database so most reads never reach it.",
		":next",
		"",
		"Add an index for the hot queries and shard the tables by tenant.",
		":next",
		"Each replica serves reads and a queue absorbs the write bursts.",
	}, "\n"))
	var out bytes.Buffer
	if err := runPractice(context.Background(), p, "ada", "sd-001", in, &out); err != nil {
		t.Fatalf("runPractice: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"How would you scale a read-heavy service?",
		"[1/3, easy]",
		"[3/3, medium]",
		"Score: ",
		"Strengths: ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if _, ok := p.Resume(context.Background(), "ada"); ok {
		t.Error("session still in flight after the last answer")
	}
	if h := p.History(context.Background(), "ada"); len(h) != 1 {
		t.Errorf("history has %d results, want 1", len(h))
	}
}

func TestRunPractice_QuitAndResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newTestPractice(t)

	var out bytes.Buffer
	in := strings.NewReader("A cache in front of the database.\n:quit\n")
	if err := runPractice(ctx, p, "ada", "sd-001", in, &out); err != nil {
		t.Fatalf("runPractice: %v", err)
	}
	if !strings.Contains(out.String(), "Session saved") {
		t.Errorf("quit output = %q", out.String())
	}

	// The first question was answered, so a second answer is refused until
	// the learner moves on.
	out.Reset()
	in = strings.NewReader("cache and database again\n:finish\n")
	if err := runPractice(ctx, p, "ada", "", in, &out); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Resuming session-sd-001") {
		t.Errorf("resume output missing banner:\n%s", got)
	}
	if !strings.Contains(got, "Already answered") {
		t.Errorf("duplicate answer not refused:\n%s", got)
	}
	if !strings.Contains(got, "Score: ") {
		t.Errorf(":finish printed no result:\n%s", got)
	}
}

func TestRunPractice_Errors(t *testing.T) {
	t.Parallel()
	p := newTestPractice(t)

	tests := []struct {
		name       string
		questionID string
	}{
		{name: "unknown question", questionID: "missing"},
		{name: "too few keywords", questionID: "thin-001"},
		{name: "nothing to resume", questionID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			err := runPractice(context.Background(), p, "nobody", tt.questionID, strings.NewReader(""), &out)
			if err == nil {
				t.Errorf("runPractice(%q) succeeded", tt.questionID)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a bit too long", 6, "a bit…"},
		{"überlänge", 4, "übe…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
