// Package phonetic implements [transcript.Spotter] using Double Metaphone
// phonetic encoding combined with Jaro-Winkler string similarity.
//
// For each keyword the spotter slides windows over the answer tokens whose
// width ranges from one fewer to one more than the keyword's word count, so
// that "kuber netties" can stand in for "kubernetes" and "loadbalancer" for
// "load balancer". Every window is scored in two stages:
//
//  1. Phonetic candidate filtering: every keyword word must share a Double
//     Metaphone code with some word of the window. Such windows are accepted
//     when their Jaro-Winkler score reaches the phonetic threshold.
//
//  2. Fuzzy fallback: windows without phonetic alignment are accepted only
//     when their Jaro-Winkler score reaches the higher fuzzy threshold.
//
// The best-scoring window wins; phonetic matches always outrank fuzzy ones.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/voxdrill/internal/transcript"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.90
)

// Option is a functional option for configuring a [Spotter].
type Option func(*Spotter)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically aligned window to be accepted. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(s *Spotter) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required for a
// window without phonetic alignment. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Spotter) {
		s.fuzzyThreshold = threshold
	}
}

// Spotter is a phonetic keyword spotter. It is read-only after construction
// and safe for concurrent use.
type Spotter struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

var _ transcript.Spotter = (*Spotter)(nil)

// New returns a [Spotter] configured with the supplied options.
func New(opts ...Option) *Spotter {
	s := &Spotter{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Spot implements [transcript.Spotter].
func (s *Spotter) Spot(text, keyword string) (transcript.Match, bool) {
	kwTokens := transcript.Tokens(keyword)
	tokens := transcript.Tokens(text)
	if len(kwTokens) == 0 || len(tokens) == 0 {
		return transcript.Match{}, false
	}

	kwFull := strings.Join(kwTokens, " ")
	kwCodes := make([]map[string]struct{}, len(kwTokens))
	for i, t := range kwTokens {
		kwCodes[i] = codesForTokens([]string{t})
	}

	var best transcript.Match
	for n := max(1, len(kwTokens)-1); n <= len(kwTokens)+1; n++ {
		for _, window := range transcript.Windows(tokens, n) {
			winTokens := strings.Fields(window)
			score := similarity(winTokens, kwTokens, window, kwFull)

			if allAligned(kwCodes, codesForTokens(winTokens)) {
				if score >= s.phoneticThreshold && (!best.Phonetic || score > best.Confidence) {
					best = transcript.Match{Keyword: keyword, Heard: window, Confidence: score, Phonetic: true}
				}
			} else if !best.Phonetic && score >= s.fuzzyThreshold && score > best.Confidence {
				best = transcript.Match{Keyword: keyword, Heard: window, Confidence: score}
			}
		}
	}

	if best.Heard == "" {
		return transcript.Match{}, false
	}
	return best, true
}

// allAligned reports whether every keyword word shares at least one phonetic
// code with the window.
func allAligned(kwCodes []map[string]struct{}, window map[string]struct{}) bool {
	for _, codes := range kwCodes {
		if len(codes) == 0 || !codesOverlap(codes, window) {
			return false
		}
	}
	return true
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or contains
// no consonants) are excluded. Multi-token input also contributes the codes
// of its concatenation so split words can align with compound keywords.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2+2)
	add := func(word string) {
		p, s := matchr.DoubleMetaphone(word)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	for _, t := range tokens {
		add(t)
	}
	if len(tokens) > 1 {
		add(strings.Join(tokens, ""))
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the higher of the full-string and the space-stripped
// Jaro-Winkler scores. Pairwise word scores are not used, so a single shared
// word ("load testing" vs "load balancer") is not a hit.
func similarity(winTokens, kwTokens []string, window, keyword string) float64 {
	score := matchr.JaroWinkler(window, keyword, false)
	if len(winTokens) > 1 || len(kwTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(winTokens, ""), strings.Join(kwTokens, ""), false); s > score {
			score = s
		}
	}
	return score
}
