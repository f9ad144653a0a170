package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/voxdrill/internal/content"
	"github.com/MrWong99/voxdrill/internal/generator"
	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

var (
	// ErrNotPracticable is returned when a question has too few voice
	// keywords to generate a session from.
	ErrNotPracticable = errors.New("session: question cannot be practised by voice")

	// ErrNoActiveSession is returned when the learner has no in-flight
	// session to act on.
	ErrNoActiveSession = errors.New("session: no active session")

	// ErrUnknownMicroQuestion is returned by Evaluate for an order outside
	// the generated session.
	ErrUnknownMicroQuestion = errors.New("session: no micro-question with that order")
)

// Step is the outcome of one learner action.
type Step struct {
	State practice.SessionState `json:"state"`

	// Answer is the evaluation of a submitted answer; nil for Advance.
	Answer *practice.MicroAnswer `json:"answer,omitempty"`

	// Result is set once the action completed the session. The result has
	// already been appended to the learner's history.
	Result *practice.SessionResult `json:"result,omitempty"`
}

// PracticeOption configures a [Practice].
type PracticeOption func(*Practice)

// WithPracticeMetrics records generation, scoring and completion on m.
func WithPracticeMetrics(m *observe.Metrics) PracticeOption {
	return func(p *Practice) {
		p.metrics = m
	}
}

// Practice runs voice sessions for many learners. It loads questions from a
// [content.Repository], generates sessions, drives the [Controller] and
// keeps every learner's progress in a [Store] so a session survives a
// restart or a reconnect.
//
// When a save fails, Practice keeps that state in process until a later
// save succeeds, so a learner can keep practising while the backend is down.
// Practice is safe for concurrent use. Two concurrent actions for the same
// learner race on the store and the last write wins.
type Practice struct {
	repo      content.Repository
	generator *generator.Generator
	ctrl      *Controller
	store     *Store
	metrics   *observe.Metrics

	mu      sync.Mutex
	unsaved map[string]practice.SessionState
}

// NewPractice wires a Practice from its collaborators. Nil gen and ctrl
// use defaults.
func NewPractice(repo content.Repository, gen *generator.Generator, ctrl *Controller, store *Store, opts ...PracticeOption) *Practice {
	if gen == nil {
		gen = generator.New(nil)
	}
	if ctrl == nil {
		ctrl = NewController(nil)
	}
	p := &Practice{
		repo:      repo,
		generator: gen,
		ctrl:      ctrl,
		store:     store,
		unsaved:   make(map[string]practice.SessionState),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Store returns the session store used by p.
func (p *Practice) Store() *Store { return p.store }

// Preview generates the voice session for questionID without starting it.
// It returns [ErrNotPracticable] when the question is too thin.
func (p *Practice) Preview(ctx context.Context, questionID string) (practice.VoiceSession, error) {
	q, err := p.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return practice.VoiceSession{}, fmt.Errorf("session: load question %q: %w", questionID, err)
	}
	s, ok := p.generator.Generate(q)
	if p.metrics != nil {
		p.metrics.RecordGeneration(ctx, q.Channel, ok)
	}
	if !ok {
		return practice.VoiceSession{}, fmt.Errorf("session: question %q: %w", questionID, ErrNotPracticable)
	}
	return s, nil
}

// Begin starts a new session on questionID for learner, replacing any
// in-flight session.
func (p *Practice) Begin(ctx context.Context, learner, questionID string) (practice.SessionState, error) {
	ctx, span := observe.StartSpan(ctx, "practice.begin", trace.WithAttributes(
		attribute.String("voxdrill.learner", learner),
		attribute.String("voxdrill.question_id", questionID),
	))
	defer span.End()

	s, err := p.Preview(ctx, questionID)
	if err != nil {
		return practice.SessionState{}, observe.Fail(span, err)
	}

	_, replaced := p.current(ctx, learner)
	state := p.ctrl.Start(s)
	p.save(ctx, learner, state)
	if p.metrics != nil && !replaced {
		p.metrics.ActiveSessions.Add(ctx, 1)
	}

	observe.Logger(ctx).Info("practice session started",
		"learner", learner,
		"session_id", s.ID,
		"micro_questions", s.TotalQuestions,
		"replaced", replaced,
	)
	return state, nil
}

// Resume returns learner's in-flight session. It reports false when there
// is none or the store cannot provide it.
func (p *Practice) Resume(ctx context.Context, learner string) (practice.SessionState, bool) {
	return p.current(ctx, learner)
}

// Answer scores text against learner's current micro-question. Answering
// the last micro-question completes the session.
func (p *Practice) Answer(ctx context.Context, learner, text string) (Step, error) {
	ctx, span := observe.StartSpan(ctx, "practice.answer", trace.WithAttributes(
		attribute.String("voxdrill.learner", learner),
	))
	defer span.End()

	state, ok := p.current(ctx, learner)
	if !ok {
		return Step{}, observe.Fail(span, ErrNoActiveSession)
	}
	next, err := p.ctrl.SubmitAnswer(state, text)
	if err != nil {
		return Step{State: state}, observe.Fail(span, err)
	}

	answer := next.Answers[len(next.Answers)-1]
	if p.metrics != nil {
		mq, _ := p.ctrl.CurrentQuestion(state)
		p.metrics.RecordAnswer(ctx, string(mq.Difficulty), answer.Score)
	}
	span.SetAttributes(attribute.Int("voxdrill.score", answer.Score))

	step := Step{State: next, Answer: &answer}
	if next.Status == practice.StatusCompleted {
		result := p.finish(ctx, learner, next)
		step.Result = &result
		return step, nil
	}
	p.save(ctx, learner, next)
	return step, nil
}

// Advance moves learner to the next micro-question, completing the session
// when the current one is the last.
func (p *Practice) Advance(ctx context.Context, learner string) (Step, error) {
	ctx, span := observe.StartSpan(ctx, "practice.advance", trace.WithAttributes(
		attribute.String("voxdrill.learner", learner),
	))
	defer span.End()

	state, ok := p.current(ctx, learner)
	if !ok {
		return Step{}, observe.Fail(span, ErrNoActiveSession)
	}
	next, err := p.ctrl.NextQuestion(state)
	if err != nil {
		return Step{State: state}, observe.Fail(span, err)
	}

	step := Step{State: next}
	if next.Status == practice.StatusCompleted {
		result := p.finish(ctx, learner, next)
		step.Result = &result
		return step, nil
	}
	p.save(ctx, learner, next)
	return step, nil
}

// Finish ends learner's session early and returns the result over the
// answers given so far.
func (p *Practice) Finish(ctx context.Context, learner string) (practice.SessionResult, error) {
	ctx, span := observe.StartSpan(ctx, "practice.finish", trace.WithAttributes(
		attribute.String("voxdrill.learner", learner),
	))
	defer span.End()

	state, ok := p.current(ctx, learner)
	if !ok {
		return practice.SessionResult{}, observe.Fail(span, ErrNoActiveSession)
	}
	result := p.finish(ctx, learner, state)
	span.SetAttributes(attribute.Int("voxdrill.score", result.OverallScore))
	return result, nil
}

// History returns learner's completed sessions, newest first.
func (p *Practice) History(ctx context.Context, learner string) []practice.SessionResult {
	return p.store.History(ctx, learner)
}

// Evaluate scores text against the micro-question at order (1-based) of the
// session generated from questionID. Nothing is persisted.
func (p *Practice) Evaluate(ctx context.Context, questionID string, order int, text string) (practice.MicroAnswer, error) {
	s, err := p.Preview(ctx, questionID)
	if err != nil {
		return practice.MicroAnswer{}, err
	}
	if order < 1 || order > len(s.MicroQuestions) {
		return practice.MicroAnswer{}, fmt.Errorf("session: order %d of %d: %w", order, len(s.MicroQuestions), ErrUnknownMicroQuestion)
	}
	mq := s.MicroQuestions[order-1]
	answer := p.ctrl.evaluator.Evaluate(text, mq)
	if p.metrics != nil {
		p.metrics.RecordAnswer(ctx, string(mq.Difficulty), answer.Score)
	}
	return answer, nil
}

func (p *Practice) finish(ctx context.Context, learner string, state practice.SessionState) practice.SessionResult {
	result := p.ctrl.Complete(state)
	p.store.AppendResult(ctx, learner, result)
	p.store.ClearCurrent(ctx, learner)
	p.mu.Lock()
	delete(p.unsaved, learner)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordCompletion(ctx, string(result.Verdict))
		p.metrics.ActiveSessions.Add(ctx, -1)
	}
	slog.Info("practice session completed",
		"learner", learner,
		"session_id", result.SessionID,
		"score", result.OverallScore,
		"verdict", result.Verdict,
	)
	return result
}

// current returns learner's in-flight session. A state whose save failed is
// newer than anything in the store and wins.
func (p *Practice) current(ctx context.Context, learner string) (practice.SessionState, bool) {
	p.mu.Lock()
	state, ok := p.unsaved[learner]
	p.mu.Unlock()
	if ok {
		return state, true
	}
	return p.store.LoadCurrent(ctx, learner)
}

// save persists state, holding it in process while the store rejects it.
func (p *Practice) save(ctx context.Context, learner string, state practice.SessionState) {
	err := p.store.saveCurrent(ctx, learner, state)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.unsaved[learner] = state
		return
	}
	delete(p.unsaved, learner)
}
