package session_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

func newController() *session.Controller {
	return session.NewController(nil, session.WithClock(fixedClock))
}

func TestController_Start(t *testing.T) {
	t.Parallel()
	c := newController()

	state := c.Start(fixtureSession(3))
	if state.Status != practice.StatusIntro {
		t.Errorf("status = %q, want intro", state.Status)
	}
	if state.CurrentQuestionIndex != 0 {
		t.Errorf("index = %d, want 0", state.CurrentQuestionIndex)
	}
	if state.Answers == nil || len(state.Answers) != 0 {
		t.Errorf("answers = %v, want empty non-nil", state.Answers)
	}
	if !state.StartedAt.Equal(fixedNow) {
		t.Errorf("startedAt = %v, want %v", state.StartedAt, fixedNow)
	}
	mq, ok := c.CurrentQuestion(state)
	if !ok || mq.Order != 1 {
		t.Errorf("CurrentQuestion = %+v, %v; want order 1", mq, ok)
	}
}

func TestController_SubmitAnswer(t *testing.T) {
	t.Parallel()
	c := newController()
	start := c.Start(fixtureSession(3))

	next, err := c.SubmitAnswer(start, goodAnswer)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if next.Status != practice.StatusInProgress {
		t.Errorf("status = %q, want in-progress", next.Status)
	}
	if next.CurrentQuestionIndex != 0 {
		t.Errorf("index advanced to %d; SubmitAnswer must not advance", next.CurrentQuestionIndex)
	}
	if len(next.Answers) != 1 || next.Answers[0].Score != 100 || next.Answers[0].QuestionID != "q1-micro-1" {
		t.Errorf("answers = %+v", next.Answers)
	}
	if len(start.Answers) != 0 || start.Status != practice.StatusIntro {
		t.Error("SubmitAnswer mutated its input state")
	}

	if _, err := c.SubmitAnswer(next, "again"); !errors.Is(err, session.ErrAlreadyAnswered) {
		t.Errorf("second answer error = %v, want ErrAlreadyAnswered", err)
	}
}

func TestController_FullRun(t *testing.T) {
	t.Parallel()
	c := newController()
	state := c.Start(fixtureSession(3))

	var err error
	for i := range 3 {
		if i > 0 {
			if state, err = c.NextQuestion(state); err != nil {
				t.Fatalf("NextQuestion %d: %v", i, err)
			}
			if state.CurrentQuestionIndex != i {
				t.Fatalf("index = %d, want %d", state.CurrentQuestionIndex, i)
			}
		}
		if state, err = c.SubmitAnswer(state, goodAnswer); err != nil {
			t.Fatalf("SubmitAnswer %d: %v", i, err)
		}
	}

	if state.Status != practice.StatusCompleted {
		t.Fatalf("status after last answer = %q, want completed", state.Status)
	}
	if len(state.Answers) != 3 {
		t.Errorf("answers = %d, want 3", len(state.Answers))
	}
	if _, ok := c.CurrentQuestion(state); ok {
		t.Error("CurrentQuestion on completed state reported true")
	}
	if _, err := c.SubmitAnswer(state, goodAnswer); !errors.Is(err, session.ErrSessionCompleted) {
		t.Errorf("SubmitAnswer after completion = %v, want ErrSessionCompleted", err)
	}
	if _, err := c.NextQuestion(state); !errors.Is(err, session.ErrSessionCompleted) {
		t.Errorf("NextQuestion after completion = %v, want ErrSessionCompleted", err)
	}
}

func TestController_SkipToEnd(t *testing.T) {
	t.Parallel()
	c := newController()
	state := c.Start(fixtureSession(3))

	var err error
	for range 2 {
		if state, err = c.NextQuestion(state); err != nil {
			t.Fatal(err)
		}
	}
	if state.Status != practice.StatusInProgress || state.CurrentQuestionIndex != 2 {
		t.Fatalf("state = %q@%d, want in-progress@2", state.Status, state.CurrentQuestionIndex)
	}

	// Skipping the last question completes without an answer.
	if state, err = c.NextQuestion(state); err != nil {
		t.Fatal(err)
	}
	if state.Status != practice.StatusCompleted || state.CurrentQuestionIndex != 2 {
		t.Errorf("state = %q@%d, want completed@2", state.Status, state.CurrentQuestionIndex)
	}
	if len(state.Answers) != 0 {
		t.Errorf("answers = %d, want 0", len(state.Answers))
	}
}

func TestController_NoCurrentQuestion(t *testing.T) {
	t.Parallel()
	c := newController()

	state := c.Start(practice.VoiceSession{ID: "session-empty"})
	if _, err := c.SubmitAnswer(state, goodAnswer); !errors.Is(err, session.ErrNoCurrentQuestion) {
		t.Errorf("SubmitAnswer on empty session = %v, want ErrNoCurrentQuestion", err)
	}

	state = c.Start(fixtureSession(3))
	state.CurrentQuestionIndex = 7
	if _, ok := c.CurrentQuestion(state); ok {
		t.Error("CurrentQuestion with out-of-range index reported true")
	}
}
