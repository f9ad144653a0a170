package generator

import (
	"strings"
)

const (
	// minSentenceLen is the length a sentence must exceed to be quoted.
	minSentenceLen = 10

	// maxExpectedSentences bounds the reference answer length.
	maxExpectedSentences = 2
)

// expectedAnswer builds the reference answer for a keyword group from the
// source question's answer and explanation: up to two sentences mentioning
// any of the keywords, lower-cased. When no sentence qualifies it falls
// back to the first sentence of the answer.
func expectedAnswer(answer, explanation string, keywords []string) string {
	corpus := strings.ToLower(answer + " " + explanation)

	var picked []string
	for _, sentence := range splitSentences(corpus) {
		if len(sentence) <= minSentenceLen {
			continue
		}
		if !mentionsAny(sentence, keywords) {
			continue
		}
		picked = append(picked, sentence)
		if len(picked) == maxExpectedSentences {
			break
		}
	}

	if len(picked) > 0 {
		return strings.Join(picked, ". ") + "."
	}

	first := ""
	if parts := splitSentences(answer); len(parts) > 0 {
		first = parts[0]
	}
	return first + "."
}

// splitSentences splits text on '.', '!' and '?' and trims each part.
// Empty parts are dropped.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mentionsAny(sentence string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(sentence, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
