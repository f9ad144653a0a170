package evaluator_test

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/voxdrill/internal/evaluator"
	"github.com/MrWong99/voxdrill/internal/transcript"
	"github.com/MrWong99/voxdrill/internal/transcript/phonetic"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

func loadBalancerMicro() practice.MicroQuestion {
	return practice.MicroQuestion{
		ID:                "q1-micro-1",
		Question:          "Can you explain load balancer and latency?",
		ExpectedAnswer:    "a load balancer spreads requests across replicas so that no single server becomes a bottleneck. latency drops as a result.",
		Keywords:          []string{"load balancer", "latency"},
		AcceptablePhrases: []string{"load balancers", "lb", "load balancing", "latencys", "response time", "delay"},
		Order:             1,
	}
}

func greekMicro(n int) practice.MicroQuestion {
	names := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	return practice.MicroQuestion{
		ID:             "g-micro-1",
		ExpectedAnswer: "letters",
		Keywords:       names[:n],
	}
}

func TestEvaluate_PhraseCoverageExample(t *testing.T) {
	t.Parallel()

	got := evaluator.New().Evaluate(
		"a load balancer reduces response time across replicas for distributed traffic",
		loadBalancerMicro(),
	)

	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if !got.IsCorrect {
		t.Error("IsCorrect = false, want true")
	}
	if !slices.Equal(got.KeywordsCovered, []string{"load balancer", "latency"}) {
		t.Errorf("KeywordsCovered = %v", got.KeywordsCovered)
	}
	if len(got.KeywordsMissed) != 0 {
		t.Errorf("KeywordsMissed = %v, want empty", got.KeywordsMissed)
	}
	if !strings.HasPrefix(got.Feedback, "Excellent") {
		t.Errorf("Feedback = %q, want excellent-band message", got.Feedback)
	}
	if got.QuestionID != "q1-micro-1" {
		t.Errorf("QuestionID = %q", got.QuestionID)
	}
}

func TestEvaluate_MinimalAnswer(t *testing.T) {
	t.Parallel()

	mq := loadBalancerMicro()
	got := evaluator.New().Evaluate("idk", mq)

	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
	if got.IsCorrect {
		t.Error("IsCorrect = true, want false")
	}
	if !slices.Equal(got.KeywordsMissed, []string{"load balancer", "latency"}) {
		t.Errorf("KeywordsMissed = %v", got.KeywordsMissed)
	}
	want := "Key points: " + mq.ExpectedAnswer[:100] + "..."
	if got.Feedback != want {
		t.Errorf("Feedback = %q, want %q", got.Feedback, want)
	}
}

func TestEvaluate_Bands(t *testing.T) {
	t.Parallel()

	const detailed = "alpha and beta are discussed here in quite some detail today"

	tests := []struct {
		name         string
		answer       string
		mq           practice.MicroQuestion
		wantScore    int
		wantCorrect  bool
		wantFeedback string
	}{
		{
			name:         "good band names the missed keyword",
			answer:       detailed,
			mq:           greekMicro(3),
			wantScore:    67,
			wantCorrect:  true,
			wantFeedback: "Good answer. To make it stronger, also mention gamma.",
		},
		{
			name:         "brief answer loses ten points",
			answer:       "alpha and beta only here",
			mq:           greekMicro(3),
			wantScore:    57,
			wantFeedback: "Partial answer. Try to include gamma.",
		},
		{
			name:         "partial band lists at most two hints",
			answer:       detailed,
			mq:           greekMicro(5),
			wantScore:    40,
			wantFeedback: "Partial answer. Try to include gamma and delta.",
		},
		{
			name:         "short complete answer",
			answer:       "alpha beta",
			mq:           greekMicro(2),
			wantScore:    80,
			wantCorrect:  true,
			wantFeedback: "Excellent! You covered the key concepts clearly.",
		},
		{
			name:         "empty answer",
			answer:       "",
			mq:           greekMicro(2),
			wantScore:    0,
			wantFeedback: "Key points: letters...",
		},
	}

	e := evaluator.New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := e.Evaluate(tc.answer, tc.mq)
			if got.Score != tc.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tc.wantScore)
			}
			if got.IsCorrect != tc.wantCorrect {
				t.Errorf("IsCorrect = %v, want %v", got.IsCorrect, tc.wantCorrect)
			}
			if got.Feedback != tc.wantFeedback {
				t.Errorf("Feedback = %q, want %q", got.Feedback, tc.wantFeedback)
			}
		})
	}
}

func TestEvaluate_GoodBandWithoutMisses(t *testing.T) {
	t.Parallel()

	mq := practice.MicroQuestion{
		ID:                "p",
		AcceptablePhrases: []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven", "twelve", "thirteen"},
	}
	got := evaluator.New().Evaluate("one two three four five six seven eight nine ten eleven twelve thirteen", mq)
	if got.Score != 65 {
		t.Fatalf("Score = %d, want 65", got.Score)
	}
	if got.Feedback != "Good answer. You covered the key concepts." {
		t.Errorf("Feedback = %q", got.Feedback)
	}
}

func TestEvaluate_PhraseBonusCountsDistinctPhrases(t *testing.T) {
	t.Parallel()

	mq := practice.MicroQuestion{
		ID:                "p",
		Keywords:          []string{"latency"},
		AcceptablePhrases: []string{"delay", "DELAY", "response time"},
	}
	// Covered via phrase (100) + two distinct phrases (10), clamped.
	got := evaluator.New().Evaluate("the delay and the response time both went up a lot", mq)
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}

	// Short answer: 100 + 10 - 20 = 90.
	got = evaluator.New().Evaluate("delay, response time", mq)
	if got.Score != 90 {
		t.Errorf("Score = %d, want 90", got.Score)
	}
}

func TestEvaluate_CaseInsensitive(t *testing.T) {
	t.Parallel()

	got := evaluator.New().Evaluate("  ALPHA and Beta are discussed here in quite some detail today  ", greekMicro(2))
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if got.UserAnswer != "  ALPHA and Beta are discussed here in quite some detail today  " {
		t.Errorf("UserAnswer not kept verbatim: %q", got.UserAnswer)
	}
}

func TestEvaluate_NoKeywords(t *testing.T) {
	t.Parallel()

	got := evaluator.New().Evaluate("anything at all can be said here without any keywords", practice.MicroQuestion{ID: "x"})
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
	if got.KeywordsCovered == nil || got.KeywordsMissed == nil {
		t.Error("keyword slices must be non-nil")
	}
}

func TestEvaluate_ScoreBounds(t *testing.T) {
	t.Parallel()

	answers := []string{
		"",
		"idk",
		"lb lb lb",
		"a load balancer reduces response time across replicas for distributed traffic",
		"load balancers load balancing lb delay response time latencys latency load balancer",
		strings.Repeat("word ", 500),
	}
	e := evaluator.New()
	for _, a := range answers {
		got := e.Evaluate(a, loadBalancerMicro())
		if got.Score < 0 || got.Score > 100 {
			t.Errorf("Evaluate(%q).Score = %d, out of [0,100]", a, got.Score)
		}
		if got.IsCorrect != (got.Score >= evaluator.CorrectThreshold) {
			t.Errorf("Evaluate(%q): IsCorrect=%v with Score=%d", a, got.IsCorrect, got.Score)
		}
		if len(got.KeywordsCovered)+len(got.KeywordsMissed) != 2 {
			t.Errorf("Evaluate(%q): coverage does not partition keywords", a)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	t.Parallel()

	e := evaluator.New()
	a := e.Evaluate("a load balancer with lb", loadBalancerMicro())
	b := e.Evaluate("a load balancer with lb", loadBalancerMicro())
	if a.Score != b.Score || a.Feedback != b.Feedback || !slices.Equal(a.KeywordsCovered, b.KeywordsCovered) {
		t.Errorf("Evaluate not deterministic: %+v vs %+v", a, b)
	}
}

type recordingSpotter struct {
	mu    sync.Mutex
	calls []string
	hits  map[string]bool
}

func (s *recordingSpotter) Spot(_ string, keyword string) (transcript.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, keyword)
	if s.hits[keyword] {
		return transcript.Match{Keyword: keyword, Heard: keyword, Confidence: 0.9}, true
	}
	return transcript.Match{}, false
}

func TestEvaluate_SpotterOnlyConsultedForMissedKeywords(t *testing.T) {
	t.Parallel()

	sp := &recordingSpotter{hits: map[string]bool{"gamma": true}}
	e := evaluator.New(evaluator.WithSpotter(sp))

	got := e.Evaluate("alpha and beta are discussed here in quite some detail today", greekMicro(3))
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if !slices.Equal(sp.calls, []string{"gamma"}) {
		t.Errorf("spotter calls = %v, want [gamma]", sp.calls)
	}
}

func TestEvaluate_SpotterAddsNoPhraseBonus(t *testing.T) {
	t.Parallel()

	sp := &recordingSpotter{hits: map[string]bool{"alpha": true}}
	got := evaluator.New(evaluator.WithSpotter(sp)).Evaluate("short", greekMicro(1))
	// 100 coverage - 20 short-answer penalty, no bonus.
	if got.Score != 80 {
		t.Errorf("Score = %d, want 80", got.Score)
	}
}

func TestEvaluate_PhoneticSpotter(t *testing.T) {
	t.Parallel()

	mq := practice.MicroQuestion{ID: "m", Keywords: []string{"latency", "throughput"}, ExpectedAnswer: "x"}
	answer := "our latancy and throughput numbers were fine after the long migration work"

	plain := evaluator.New().Evaluate(answer, mq)
	if plain.Score != 50 {
		t.Errorf("without spotter Score = %d, want 50", plain.Score)
	}

	spotted := evaluator.New(evaluator.WithSpotter(phonetic.New())).Evaluate(answer, mq)
	if spotted.Score != 100 {
		t.Errorf("with spotter Score = %d, want 100", spotted.Score)
	}
	if !slices.Equal(spotted.KeywordsCovered, []string{"latency", "throughput"}) {
		t.Errorf("KeywordsCovered = %v", spotted.KeywordsCovered)
	}
}
