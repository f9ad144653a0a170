// Package transcript holds the text handling shared by answer evaluation:
// normalisation of spoken or typed answers, word counting and the [Spotter]
// contract used to recognise keywords that speech-to-text output mangled.
//
// Typed answers rarely need more than substring checks, but transcribed
// speech splits, merges and misspells technical terms ("kuber netties" for
// "kubernetes"). A Spotter looks for a keyword in such text by sound and
// spelling similarity instead of exact bytes.
//
// Implementations of [Spotter] must be safe for concurrent use.
package transcript

import (
	"strings"
	"unicode"
)

// Match describes a keyword located in a transcript by a [Spotter].
type Match struct {
	// Keyword is the keyword that was searched for, as supplied.
	Keyword string

	// Heard is the span of the transcript that matched, normalised.
	Heard string

	// Confidence is the similarity score of the match (0.0–1.0).
	Confidence float64

	// Phonetic reports whether the match was backed by a phonetic code
	// overlap rather than spelling similarity alone.
	Phonetic bool
}

// Spotter finds keywords in free-form answer text.
type Spotter interface {
	// Spot reports whether keyword occurs in text, allowing for the
	// spelling and word-boundary errors typical of transcribed speech.
	// When ok is false the returned Match is the zero value.
	Spot(text, keyword string) (m Match, ok bool)
}

// Normalize lower-cases s and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Tokens splits s into lower-cased words with leading and trailing
// punctuation removed. Tokens that are pure punctuation are dropped.
func Tokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Windows returns every run of n consecutive tokens joined by a single space.
// It returns nil when n is not positive or exceeds len(tokens).
func Windows(tokens []string, n int) []string {
	if n <= 0 || n > len(tokens) {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}
