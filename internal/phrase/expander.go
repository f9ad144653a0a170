// Package phrase expands interview keywords into the alternate surface forms
// a learner may use instead: the singular/plural flip and curated
// abbreviations or synonyms.
//
// An [Expander] is read-only after construction and safe for concurrent use.
package phrase

import (
	"strings"

	"github.com/samber/lo"
)

// Expander produces acceptable phrases for a set of keywords.
type Expander struct {
	table Table
}

// New returns an [Expander] backed by table. The table is copied and
// normalised, so later changes by the caller have no effect. A nil table
// yields an expander that only performs the plural flip.
func New(table Table) *Expander {
	return &Expander{table: Table{}.Merge(table)}
}

// Expand returns the de-duplicated union of alternate forms for keywords.
// For each keyword, lower-cased, the plural form is flipped (a trailing "s"
// is stripped, otherwise one is appended) and all table alternates for the
// keyword are added. Order follows the input and carries no meaning.
// Empty input yields an empty, non-nil slice.
func (e *Expander) Expand(keywords []string) []string {
	out := make([]string, 0, len(keywords)*3)
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		if lower == "" {
			continue
		}
		out = append(out, flipPlural(lower))
		out = append(out, e.table[lower]...)
	}
	return lo.Uniq(out)
}

// flipPlural toggles a trailing "s".
func flipPlural(word string) string {
	if strings.HasSuffix(word, "s") {
		return strings.TrimSuffix(word, "s")
	}
	return word + "s"
}
