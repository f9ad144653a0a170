package session

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	strongRatio         = 0.7
	coverageStrengthMin = 5
	maxNamedCovered     = 3
	maxNamedMissed      = 4
	weakAnswerScore     = 50
)

// Complete aggregates state into the session's final result. It does not
// require the state to be completed; callers finishing early get a result
// over the answers given so far.
func (c *Controller) Complete(state practice.SessionState) practice.SessionResult {
	return Aggregate(state, c.now())
}

// Aggregate computes the [practice.SessionResult] for state with the given
// completion time.
func Aggregate(state practice.SessionState, completedAt time.Time) practice.SessionResult {
	answers := slices.Clone(state.Answers)
	if answers == nil {
		answers = []practice.MicroAnswer{}
	}

	total := len(answers)
	overall := 0
	if total > 0 {
		sum := lo.SumBy(answers, func(a practice.MicroAnswer) int { return a.Score })
		overall = int(math.Round(float64(sum) / float64(total)))
	}
	verdict := practice.VerdictForScore(overall)
	correct := lo.CountBy(answers, func(a practice.MicroAnswer) bool { return a.IsCorrect })

	covered := lo.Uniq(lo.FlatMap(answers, func(a practice.MicroAnswer, _ int) []string { return a.KeywordsCovered }))
	missed := lo.Uniq(lo.FlatMap(answers, func(a practice.MicroAnswer, _ int) []string { return a.KeywordsMissed }))

	strengths := []string{}
	switch {
	case total > 0 && correct == total:
		strengths = append(strengths, fmt.Sprintf("Answered all %d questions correctly", total))
	case total > 0 && float64(correct) >= strongRatio*float64(total):
		strengths = append(strengths, fmt.Sprintf("Answered %d of %d questions correctly", correct, total))
	}
	if len(covered) >= coverageStrengthMin {
		strengths = append(strengths, "Good concept coverage: "+strings.Join(covered[:maxNamedCovered], ", "))
	}

	areas := []string{}
	if len(missed) > 0 {
		areas = append(areas, "Review these concepts: "+strings.Join(missed[:min(len(missed), maxNamedMissed)], ", "))
	}
	if weak := lo.CountBy(answers, func(a practice.MicroAnswer) bool { return a.Score < weakAnswerScore }); weak > 0 {
		areas = append(areas, fmt.Sprintf("Practice more: %d %s scored below %d", weak, plural(weak, "answer", "answers"), weakAnswerScore))
	}

	return practice.SessionResult{
		SessionID:      state.Session.ID,
		Topic:          state.Session.Topic,
		Answers:        answers,
		OverallScore:   overall,
		Verdict:        verdict,
		Summary:        summary(verdict, correct, total, state.Session.Topic),
		Strengths:      strengths,
		AreasToImprove: areas,
		CompletedAt:    completedAt,
	}
}

func summary(v practice.Verdict, correct, total int, topic string) string {
	switch v {
	case practice.VerdictExcellent:
		return fmt.Sprintf("Excellent work on %s! You answered %d/%d questions correctly.", topic, correct, total)
	case practice.VerdictGood:
		return fmt.Sprintf("Good job on %s. You answered %d/%d questions correctly and know the fundamentals.", topic, correct, total)
	case practice.VerdictNeedsWork:
		return fmt.Sprintf("You answered %d/%d questions on %s correctly. Keep practicing to fill the gaps.", correct, total, topic)
	default:
		return fmt.Sprintf("You answered %d/%d questions on %s correctly. Review the topic and try again.", correct, total, topic)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
