// Package topic derives a short, human-readable topic label from the opening
// sentence of an interview question.
package topic

import (
	"regexp"
	"strings"
)

// maxRunes caps the length of a topic label.
const maxRunes = 50

// leadIn also takes a contracted "'s" or a colon, as in "What's" and
// "Explain:". Longer words such as "Whatever" are left alone.
var leadIn = regexp.MustCompile(`(?i)^(?:what|how|why|when|explain|describe|tell me about)(?:['’]s|:)?\s+`)

// Extract returns the topic label for question. The interrogative or
// imperative lead-in and a trailing "?" are removed, then the text is cut at
// the first comma, the first period or 50 characters, whichever comes first.
func Extract(question string) string {
	s := strings.TrimSpace(question)
	s = leadIn.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "?")
	s = strings.TrimSpace(s)

	if i := strings.IndexAny(s, ",."); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > maxRunes {
		s = string(r[:maxRunes])
	}
	return strings.TrimSpace(s)
}
