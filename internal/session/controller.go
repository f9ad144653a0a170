// Package session drives a learner through a generated voice session.
//
// The [Controller] implements the session state machine
// (intro → in-progress → completed) as pure transitions: every method takes a
// [practice.SessionState] and returns a new one without touching the input.
// [Store] persists the in-flight state and the bounded result history, and
// [Practice] ties generation, evaluation, aggregation and persistence
// together per learner.
package session

import (
	"errors"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/internal/evaluator"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

var (
	// ErrSessionCompleted is returned by transitions on a completed state.
	ErrSessionCompleted = errors.New("session: session already completed")

	// ErrAlreadyAnswered is returned when the current micro-question already
	// has an answer.
	ErrAlreadyAnswered = errors.New("session: current question already answered")

	// ErrNoCurrentQuestion is returned when the state's index does not point
	// at a micro-question.
	ErrNoCurrentQuestion = errors.New("session: no current question")
)

// Option configures a [Controller].
type Option func(*Controller)

// WithClock replaces time.Now as the source of StartedAt and CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller holds the state machine's collaborators. It keeps no
// per-session data and is safe for concurrent use.
type Controller struct {
	evaluator *evaluator.Evaluator
	now       func() time.Time
}

// NewController returns a Controller that scores answers with ev. A nil ev
// uses an evaluator with default settings.
func NewController(ev *evaluator.Evaluator, opts ...Option) *Controller {
	if ev == nil {
		ev = evaluator.New()
	}
	c := &Controller{evaluator: ev, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start returns the initial state for s.
func (c *Controller) Start(s practice.VoiceSession) practice.SessionState {
	return practice.SessionState{
		Session:              s,
		CurrentQuestionIndex: 0,
		Answers:              []practice.MicroAnswer{},
		StartedAt:            c.now(),
		Status:               practice.StatusIntro,
	}
}

// SubmitAnswer evaluates text against the current micro-question and
// records the result. The index is not advanced; answering the last
// micro-question completes the session.
func (c *Controller) SubmitAnswer(state practice.SessionState, text string) (practice.SessionState, error) {
	if state.Status == practice.StatusCompleted {
		return state, ErrSessionCompleted
	}
	mq, ok := c.CurrentQuestion(state)
	if !ok {
		return state, ErrNoCurrentQuestion
	}
	if lo.ContainsBy(state.Answers, func(a practice.MicroAnswer) bool { return a.QuestionID == mq.ID }) {
		return state, ErrAlreadyAnswered
	}

	next := state
	next.Answers = append(slices.Clone(state.Answers), c.evaluator.Evaluate(text, mq))
	if isLast(state) {
		next.Status = practice.StatusCompleted
	} else {
		next.Status = practice.StatusInProgress
	}
	return next, nil
}

// NextQuestion moves to the following micro-question, or completes the
// session when already at the last one.
func (c *Controller) NextQuestion(state practice.SessionState) (practice.SessionState, error) {
	if state.Status == practice.StatusCompleted {
		return state, ErrSessionCompleted
	}

	next := state
	next.Answers = slices.Clone(state.Answers)
	if isLast(state) {
		next.Status = practice.StatusCompleted
		return next, nil
	}
	next.CurrentQuestionIndex++
	next.Status = practice.StatusInProgress
	return next, nil
}

// CurrentQuestion returns the micro-question at the state's index. It
// reports false for completed states and out-of-range indexes.
func (c *Controller) CurrentQuestion(state practice.SessionState) (practice.MicroQuestion, bool) {
	if state.Status == practice.StatusCompleted {
		return practice.MicroQuestion{}, false
	}
	i := state.CurrentQuestionIndex
	if i < 0 || i >= len(state.Session.MicroQuestions) {
		return practice.MicroQuestion{}, false
	}
	return state.Session.MicroQuestions[i], true
}

// isLast reports whether the index is at or past the final micro-question.
func isLast(state practice.SessionState) bool {
	return state.CurrentQuestionIndex >= len(state.Session.MicroQuestions)-1
}
