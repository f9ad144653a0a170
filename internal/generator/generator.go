// Package generator turns a long-form interview question into a voice
// session: a short sequence of micro-questions, each scoped to a pair of the
// question's voice keywords.
//
// Generation is deterministic and has no side effects. A question that
// cannot support a full session yields no session rather than a partial one.
package generator

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/internal/phrase"
	"github.com/MrWong99/voxdrill/internal/topic"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	// MinKeywords is the fewest voice keywords a question needs before
	// generation is attempted.
	MinKeywords = 4

	// MinMicroQuestions is the fewest micro-questions with a full keyword
	// pair a session must carry.
	MinMicroQuestions = 3

	// MaxMicroQuestions caps the session length.
	MaxMicroQuestions = 6

	keywordsPerGroup = 2
)

// Option configures a [Generator].
type Option func(*Generator)

// WithTemplates overrides template sets by channel. Channels not present in
// sets keep their default templates; empty sets are ignored.
func WithTemplates(sets TemplateSets) Option {
	return func(g *Generator) {
		g.templates = g.templates.merge(sets)
	}
}

// Generator builds [practice.VoiceSession] values from questions. It is
// immutable after construction and safe for concurrent use.
type Generator struct {
	expander  *phrase.Expander
	templates TemplateSets
}

// New returns a Generator that derives acceptable phrases with expander.
// A nil expander uses [phrase.DefaultTable].
func New(expander *phrase.Expander, opts ...Option) *Generator {
	if expander == nil {
		expander = phrase.New(phrase.DefaultTable())
	}
	g := &Generator{
		expander:  expander,
		templates: DefaultTemplates(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate builds a voice session for q. It reports false when q has fewer
// than [MinKeywords] voice keywords or when the keywords do not fill at least
// [MinMicroQuestions] micro-questions with two keywords each.
func (g *Generator) Generate(q practice.Question) (practice.VoiceSession, bool) {
	if len(q.VoiceKeywords) < MinKeywords {
		return practice.VoiceSession{}, false
	}

	groups := lo.Chunk(q.VoiceKeywords, keywordsPerGroup)
	if len(groups) > MaxMicroQuestions {
		groups = groups[:MaxMicroQuestions]
	}

	full := lo.CountBy(groups, func(group []string) bool {
		return len(group) == keywordsPerGroup
	})
	if full < MinMicroQuestions {
		return practice.VoiceSession{}, false
	}

	templates := g.templates.forChannel(q.Channel)
	micro := make([]practice.MicroQuestion, 0, len(groups))
	for i, group := range groups {
		order := i + 1
		keywords := append([]string(nil), group...)
		micro = append(micro, practice.MicroQuestion{
			ID:                fmt.Sprintf("%s-micro-%d", q.ID, order),
			Question:          render(templates[i%len(templates)], keywords),
			ExpectedAnswer:    expectedAnswer(q.Answer, q.Explanation, keywords),
			Keywords:          keywords,
			AcceptablePhrases: g.expander.Expand(keywords),
			Difficulty:        practice.DifficultyForOrder(order),
			Order:             order,
		})
	}

	return practice.VoiceSession{
		ID:               "session-" + q.ID,
		Topic:            topic.Extract(q.Question),
		Channel:          q.Channel,
		Difficulty:       q.Difficulty,
		ContextQuestion:  q.Question,
		MicroQuestions:   micro,
		TotalQuestions:   len(micro),
		SourceQuestionID: q.ID,
	}, true
}

func render(template string, keywords []string) string {
	return strings.ReplaceAll(template, Placeholder, strings.Join(keywords, " and "))
}

// IsPracticable reports whether [Generator.Generate] would build a session
// for q without building one.
func IsPracticable(q practice.Question) bool {
	return len(q.VoiceKeywords) >= MinKeywords &&
		len(q.VoiceKeywords) >= MinMicroQuestions*keywordsPerGroup
}
