package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Difficulty selects the term inventory a session draws from.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty validates a client-supplied difficulty, defaulting to beginner.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(raw) {
	case "":
		return DifficultyBeginner, nil
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(raw), nil
	}
	return "", ErrInvalidDifficulty
}

// SessionStatus is the lifecycle state of a quiz session.
// Completed and expired are terminal; a session never returns to active.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// QuizSession is the server-side view of one in-progress quiz.
// The answer key and used-distractor set live in the store alongside it and are
// never part of this struct's client projections.
type QuizSession struct {
	ID                string
	UserID            string
	Difficulty        Difficulty
	Status            SessionStatus
	QuestionsAnswered int
	CorrectCount      int
	TotalScore        float64
	TimeSpentSeconds  float64
	StartedAt         time.Time
	LastActivity      time.Time
	ExpiresAt         time.Time
}

// LiveAt reports whether the session can still accept activity at the given instant.
func (s QuizSession) LiveAt(now time.Time, idleWindow time.Duration) bool {
	return s.Status == StatusActive &&
		now.Sub(s.LastActivity) <= idleWindow &&
		now.Before(s.ExpiresAt)
}

// Term is one slang entry from the term source.
type Term struct {
	Name       string     `json:"name"`
	Meaning    string     `json:"meaning"`
	Example    string     `json:"example"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

// Option is one labeled answer choice.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the client-facing projection of a generated question.
// It structurally cannot carry the correct option id or the answer key.
type Question struct {
	QuestionID   string   `json:"questionId"`
	SlangTerm    string   `json:"slangTerm"`
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options"`
	ContextHint  string   `json:"contextHint,omitempty"`
}

// AnswerKey is the server-only record kept per issued question.
type AnswerKey struct {
	Option  string `json:"option"`
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}

// IssuedQuestion pairs the client projection with the server-only state the
// store must retain for it.
type IssuedQuestion struct {
	Question     Question
	Key          AnswerKey
	WrongOptions []string
}

// SessionStats is the running aggregate projection of a session.
type SessionStats struct {
	QuestionsAnswered int     `json:"questionsAnswered"`
	CorrectCount      int     `json:"correctCount"`
	TotalScore        float64 `json:"totalScore"`
	Accuracy          float64 `json:"accuracy"`
	TimeSpentSeconds  float64 `json:"timeSpentSeconds"`
}

// StatsOf derives the aggregate projection from a session.
func StatsOf(s QuizSession) SessionStats {
	accuracy := 0.0
	if s.QuestionsAnswered > 0 {
		accuracy = float64(s.CorrectCount) / float64(s.QuestionsAnswered)
	}
	return SessionStats{
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectCount:      s.CorrectCount,
		TotalScore:        s.TotalScore,
		Accuracy:          accuracy,
		TimeSpentSeconds:  s.TimeSpentSeconds,
	}
}

// AnswerResult summarizes one scored submission.
type AnswerResult struct {
	QuestionID   string       `json:"questionId"`
	Correct      bool         `json:"correct"`
	PointsEarned float64      `json:"pointsEarned"`
	Explanation  string       `json:"explanation"`
	Stats        SessionStats `json:"runningStats"`
}

// SessionSummary is the finalized view returned when a session ends.
type SessionSummary struct {
	SessionID        string  `json:"sessionId"`
	Score            float64 `json:"score"`
	TotalPossible    float64 `json:"totalPossible"`
	CorrectCount     int     `json:"correctCount"`
	TotalQuestions   int     `json:"totalQuestions"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
	ShareText        string  `json:"shareText"`
}

// QuizHistoryEntry is the immutable record of a finished session,
// keyed by (user, date, session). Never mutated after creation.
type QuizHistoryEntry struct {
	UserID         string
	SessionID      string
	PlayedOn       time.Time
	Score          float64
	CorrectCount   int
	TotalQuestions int
	ElapsedSeconds float64
	Difficulty     Difficulty
}

// NewID returns an opaque random identifier for sessions and questions.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a timestamp id.
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))
	}
	return hex.EncodeToString(buf)
}
