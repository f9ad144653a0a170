package evaluator

import (
	"fmt"
	"strings"
)

const (
	excellentScore = 80
	partialScore   = 40

	maxHints      = 2
	excerptLength = 100
)

// feedback returns the learner-facing message for a score band.
func feedback(score int, missed []string, expectedAnswer string) string {
	switch {
	case score >= excellentScore:
		return "Excellent! You covered the key concepts clearly."
	case score >= CorrectThreshold:
		if len(missed) == 0 {
			return "Good answer. You covered the key concepts."
		}
		return fmt.Sprintf("Good answer. To make it stronger, also mention %s.", hints(missed))
	case score >= partialScore:
		if len(missed) == 0 {
			return "Partial answer. Add more detail to explain the concepts."
		}
		return fmt.Sprintf("Partial answer. Try to include %s.", hints(missed))
	default:
		return "Key points: " + excerpt(expectedAnswer) + "..."
	}
}

func hints(missed []string) string {
	if len(missed) > maxHints {
		missed = missed[:maxHints]
	}
	return strings.Join(missed, " and ")
}

// excerpt returns the first excerptLength characters of s.
func excerpt(s string) string {
	r := []rune(s)
	if len(r) > excerptLength {
		r = r[:excerptLength]
	}
	return string(r)
}
