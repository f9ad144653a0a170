// Package content serves the interview questions that voice sessions are
// generated from.
//
// Questions are loaded from YAML question banks (see [LoadBankFile]) into a
// [MemRepository]. The practice engine only needs [Repository]; hosts that
// browse the bank use the richer MemRepository methods.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

// ErrNotFound is returned when no question with the requested ID exists.
var ErrNotFound = errors.New("content: question not found")

// ErrDuplicateID is returned by Add when a question with the same ID exists.
var ErrDuplicateID = errors.New("content: question with that ID already exists")

// Repository looks questions up by ID.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetQuestion returns the question with id or [ErrNotFound].
	GetQuestion(ctx context.Context, id string) (practice.Question, error)
}

// Validate checks q for the fields every question needs.
//
// Rules:
//   - ID and Question must be non-empty.
//   - VoiceKeywords, if present, must not contain blank entries.
func Validate(q practice.Question) error {
	var errs []error

	if strings.TrimSpace(q.ID) == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if strings.TrimSpace(q.Question) == "" {
		errs = append(errs, errors.New("question must not be empty"))
	}
	for i, kw := range q.VoiceKeywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, fmt.Errorf("voice_keywords[%d]: must not be blank", i))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
