package session_test

import (
	"fmt"
	"time"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	// goodAnswer covers both fixture keywords with enough words to avoid
	// the length penalty: score 100.
	goodAnswer = "we put a cache in front of the database so reads stay fast and cheap"

	// halfAnswer covers only "cache": score 50.
	halfAnswer = "the cache keeps hot data close to the service for faster reads overall"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fixtureSession returns a session of n micro-questions that all ask for
// "cache" and "database".
func fixtureSession(n int) practice.VoiceSession {
	mqs := make([]practice.MicroQuestion, n)
	for i := range n {
		order := i + 1
		mqs[i] = practice.MicroQuestion{
			ID:             fmt.Sprintf("q1-micro-%d", order),
			Question:       "Can you explain cache and database?",
			ExpectedAnswer: "A cache sits in front of the database.",
			Keywords:       []string{"cache", "database"},
			Difficulty:     practice.DifficultyForOrder(order),
			Order:          order,
		}
	}
	return practice.VoiceSession{
		ID:               "session-q1",
		Topic:            "caching",
		Channel:          "system-design",
		ContextQuestion:  "How does caching help a database?",
		MicroQuestions:   mqs,
		TotalQuestions:   n,
		SourceQuestionID: "q1",
	}
}

func answer(id string, score int, covered, missed []string) practice.MicroAnswer {
	return practice.MicroAnswer{
		QuestionID:      id,
		Score:           score,
		KeywordsCovered: covered,
		KeywordsMissed:  missed,
		IsCorrect:       score >= 60,
	}
}
