// Package evaluator scores a learner's answer to a single micro-question.
//
// Scoring is a keyword heuristic: every micro-question keyword found in the
// answer (directly or through one of the micro-question's acceptable
// phrases) contributes its share of 100 points, each distinct acceptable
// phrase present adds a small bonus, and very short answers are penalised.
// Evaluation never fails: any string, including the empty string, produces
// a valid [practice.MicroAnswer].
package evaluator

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/internal/transcript"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	// CorrectThreshold is the lowest score counted as a correct answer.
	CorrectThreshold = 60

	phraseBonusPerMatch = 5

	shortAnswerWords   = 5
	shortAnswerPenalty = 20
	briefAnswerWords   = 10
	briefAnswerPenalty = 10

	minScore = 0
	maxScore = 100
)

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithSpotter enables fuzzy keyword spotting for transcribed answers. A
// keyword that is neither present verbatim nor covered by an acceptable
// phrase is handed to s; a hit moves it from missed to covered. Spotter hits
// never add phrase bonus. Nil disables spotting, which is the default.
func WithSpotter(s transcript.Spotter) Option {
	return func(e *Evaluator) {
		e.spotter = s
	}
}

// Evaluator scores answers. It is read-only after construction and safe for
// concurrent use.
type Evaluator struct {
	spotter transcript.Spotter
}

// New returns an [Evaluator] configured with opts.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate scores userAnswer against mq. The returned answer keeps
// userAnswer verbatim.
func (e *Evaluator) Evaluate(userAnswer string, mq practice.MicroQuestion) practice.MicroAnswer {
	normalized := transcript.Normalize(userAnswer)

	phrases := lo.Uniq(lo.Map(mq.AcceptablePhrases, func(p string, _ int) string {
		return transcript.Normalize(p)
	}))
	presentPhrases := lo.CountBy(phrases, func(p string) bool {
		return p != "" && strings.Contains(normalized, p)
	})

	covered := make([]string, 0, len(mq.Keywords))
	missed := make([]string, 0, len(mq.Keywords))
	for _, kw := range mq.Keywords {
		if e.covers(normalized, kw, presentPhrases > 0) {
			covered = append(covered, kw)
		} else {
			missed = append(missed, kw)
		}
	}

	var keywordScore float64
	if len(mq.Keywords) > 0 {
		keywordScore = float64(len(covered)) / float64(len(mq.Keywords)) * 100
	}
	phraseBonus := float64(presentPhrases * phraseBonusPerMatch)
	penalty := float64(lengthPenalty(transcript.WordCount(normalized)))

	score := clamp(int(math.Round(keywordScore+phraseBonus-penalty)), minScore, maxScore)

	return practice.MicroAnswer{
		QuestionID:      mq.ID,
		UserAnswer:      userAnswer,
		Score:           score,
		KeywordsCovered: covered,
		KeywordsMissed:  missed,
		IsCorrect:       score >= CorrectThreshold,
		Feedback:        feedback(score, missed, mq.ExpectedAnswer),
	}
}

// covers reports whether keyword counts as covered by the normalised answer.
// Any acceptable phrase present in the answer credits every keyword of the
// micro-question.
func (e *Evaluator) covers(normalized, keyword string, phraseHit bool) bool {
	kw := transcript.Normalize(keyword)
	if kw != "" && strings.Contains(normalized, kw) {
		return true
	}
	if phraseHit {
		return true
	}
	if e.spotter != nil && kw != "" {
		_, ok := e.spotter.Spot(normalized, kw)
		return ok
	}
	return false
}

func lengthPenalty(words int) int {
	switch {
	case words < shortAnswerWords:
		return shortAnswerPenalty
	case words < briefAnswerWords:
		return briefAnswerPenalty
	default:
		return 0
	}
}

func clamp(v, lower, upper int) int {
	return min(max(v, lower), upper)
}
