// Package practice defines the records shared by every voxdrill package:
// source questions, generated voice sessions, scored answers, session state
// and the final session result.
//
// All types are plain data with JSON tags so they can be serialised at the
// persistence boundary without adapters. Fields use strings, integers and
// string-typed enums only.
package practice

import "time"

// Difficulty grades a micro-question by its position within a session.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyForOrder returns the difficulty assigned to the micro-question at
// the given 1-based order: orders below 2 are easy, below 4 medium, the rest
// hard.
func DifficultyForOrder(order int) Difficulty {
	switch {
	case order < 2:
		return DifficultyEasy
	case order < 4:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// Status is the lifecycle position of a [SessionState].
type Status string

const (
	StatusIntro      Status = "intro"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	switch s {
	case StatusIntro, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Verdict is the qualitative band assigned to a completed session.
type Verdict string

const (
	VerdictExcellent   Verdict = "excellent"
	VerdictGood        Verdict = "good"
	VerdictNeedsWork   Verdict = "needs-work"
	VerdictReviewTopic Verdict = "review-topic"
)

// VerdictForScore maps an overall score onto its verdict band.
func VerdictForScore(score int) Verdict {
	switch {
	case score >= 80:
		return VerdictExcellent
	case score >= 60:
		return VerdictGood
	case score >= 40:
		return VerdictNeedsWork
	default:
		return VerdictReviewTopic
	}
}

// Question is a long-form interview question as served by the content
// repository. The engine never modifies it.
type Question struct {
	ID          string `yaml:"id" json:"id"`
	Question    string `yaml:"question" json:"question"`
	Answer      string `yaml:"answer" json:"answer"`
	Explanation string `yaml:"explanation" json:"explanation"`
	Channel     string `yaml:"channel" json:"channel"`
	Difficulty  string `yaml:"difficulty" json:"difficulty"`

	// VoiceKeywords are the key concepts a spoken answer should mention.
	// Questions without keywords cannot be practised by voice.
	VoiceKeywords []string `yaml:"voice_keywords,omitempty" json:"voiceKeywords,omitempty"`

	// Tags are free-form labels used for browsing the question bank.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// MicroQuestion is one short, keyword-scoped prompt derived from a
// [Question].
type MicroQuestion struct {
	// ID is "{questionId}-micro-{order}".
	ID string `json:"id"`

	// Question is the prompt shown or spoken to the learner.
	Question string `json:"question"`

	// ExpectedAnswer is a one or two sentence reference answer.
	ExpectedAnswer string `json:"expectedAnswer"`

	// Keywords are the terms an answer must mention, normally two.
	Keywords []string `json:"keywords"`

	// AcceptablePhrases are alternate surface forms that count as evidence
	// for a keyword (plural flips, abbreviations, synonyms).
	AcceptablePhrases []string `json:"acceptablePhrases"`

	Difficulty Difficulty `json:"difficulty"`

	// Order is the 1-based position within the session.
	Order int `json:"order"`
}

// VoiceSession is an ordered sequence of micro-questions generated from a
// single source question. A VoiceSession always holds between 3 and 6
// micro-questions.
type VoiceSession struct {
	// ID is "session-{sourceQuestionId}".
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Channel    string `json:"channel"`
	Difficulty string `json:"difficulty"`

	// ContextQuestion is the original question text, shown first for framing.
	ContextQuestion string `json:"contextQuestion"`

	MicroQuestions []MicroQuestion `json:"microQuestions"`
	TotalQuestions int             `json:"totalQuestions"`

	SourceQuestionID string `json:"sourceQuestionId,omitempty"`
}

// MicroAnswer is the immutable evaluation of one submitted answer.
type MicroAnswer struct {
	QuestionID      string   `json:"questionId"`
	UserAnswer      string   `json:"userAnswer"`
	Score           int      `json:"score"`
	KeywordsCovered []string `json:"keywordsCovered"`
	KeywordsMissed  []string `json:"keywordsMissed"`
	IsCorrect       bool     `json:"isCorrect"`
	Feedback        string   `json:"feedback"`
}

// SessionState tracks progress through a [VoiceSession]. It is created by
// the session controller's Start and changed only by SubmitAnswer and
// NextQuestion; once Status is [StatusCompleted] it never changes again.
type SessionState struct {
	Session              VoiceSession  `json:"session"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Answers              []MicroAnswer `json:"answers"`
	StartedAt            time.Time     `json:"startedAt"`
	Status               Status        `json:"status"`
}

// SessionResult is the aggregated outcome of a completed session.
type SessionResult struct {
	SessionID      string        `json:"sessionId"`
	Topic          string        `json:"topic"`
	Answers        []MicroAnswer `json:"answers"`
	OverallScore   int           `json:"overallScore"`
	Verdict        Verdict       `json:"verdict"`
	Summary        string        `json:"summary"`
	Strengths      []string      `json:"strengths"`
	AreasToImprove []string      `json:"areasToImprove"`
	CompletedAt    time.Time     `json:"completedAt"`
}
