package content

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

var _ Repository = (*MemRepository)(nil)

// MemRepository is a thread-safe, in-memory question bank.
// The zero value is ready to use.
type MemRepository struct {
	mu        sync.RWMutex
	questions map[string]practice.Question
}

// NewMemRepository returns an empty [MemRepository].
func NewMemRepository() *MemRepository {
	return &MemRepository{questions: make(map[string]practice.Question)}
}

// Add validates and stores q. It returns [ErrDuplicateID] when the ID is
// already taken.
func (r *MemRepository) Add(_ context.Context, q practice.Question) error {
	if err := Validate(q); err != nil {
		return fmt.Errorf("content: invalid question %q: %w", q.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.questions == nil {
		r.questions = make(map[string]practice.Question)
	}
	if _, exists := r.questions[q.ID]; exists {
		return ErrDuplicateID
	}
	r.questions[q.ID] = cloneQuestion(q)
	return nil
}

// GetQuestion implements [Repository].
func (r *MemRepository) GetQuestion(_ context.Context, id string) (practice.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return practice.Question{}, ErrNotFound
	}
	return cloneQuestion(q), nil
}

// List returns the questions of channel sorted by ID. An empty channel
// returns every question.
func (r *MemRepository) List(_ context.Context, channel string) []practice.Question {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]practice.Question, 0, len(r.questions))
	for _, q := range r.questions {
		if channel != "" && !strings.EqualFold(q.Channel, channel) {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	slices.SortFunc(out, func(a, b practice.Question) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Channels returns the distinct channels in the bank, sorted.
func (r *MemRepository) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := lo.Uniq(lo.Map(lo.Values(r.questions), func(q practice.Question, _ int) string {
		return q.Channel
	}))
	slices.Sort(channels)
	return channels
}

// Len returns the number of stored questions.
func (r *MemRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.questions)
}

// Search returns questions whose text, tags or voice keywords fuzzily
// contain query, best match first. A limit of zero or less returns every
// match. An empty query returns nothing.
func (r *MemRepository) Search(_ context.Context, query string, limit int) []practice.Question {
	query = strings.TrimSpace(query)
	if query == "" {
		return []practice.Question{}
	}

	type hit struct {
		q    practice.Question
		rank int
	}

	r.mu.RLock()
	hits := make([]hit, 0)
	for _, q := range r.questions {
		ranks := fuzzy.RankFindFold(query, searchTargets(q))
		if len(ranks) == 0 {
			continue
		}
		best := lo.MinBy(ranks, func(a, b fuzzy.Rank) bool { return a.Distance < b.Distance })
		hits = append(hits, hit{q: cloneQuestion(q), rank: best.Distance})
	}
	r.mu.RUnlock()

	slices.SortFunc(hits, func(a, b hit) int {
		return cmp.Or(cmp.Compare(a.rank, b.rank), cmp.Compare(a.q.ID, b.q.ID))
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return lo.Map(hits, func(h hit, _ int) practice.Question { return h.q })
}

// searchTargets returns the strings Search matches a question against.
func searchTargets(q practice.Question) []string {
	targets := make([]string, 0, 1+len(q.Tags)+len(q.VoiceKeywords))
	targets = append(targets, q.Question)
	targets = append(targets, q.Tags...)
	return append(targets, q.VoiceKeywords...)
}

func cloneQuestion(q practice.Question) practice.Question {
	q.VoiceKeywords = slices.Clone(q.VoiceKeywords)
	q.Tags = slices.Clone(q.Tags)
	return q
}
