package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
	"github.com/wmtylerbrown/lingible-sub000/internal/quiz"
)

// SessionStore persists quiz sessions (in-memory, Redis, etc). It is the sole
// writer of session state; session creation and aggregate updates must be
// atomic so concurrent requests cannot race a read-modify-write cycle.
type SessionStore interface {
	// GetOrCreate returns the user's live session, or atomically expires any
	// stale one and creates a replacement. The bool reports whether a new
	// session was created.
	GetOrCreate(ctx context.Context, userID string, difficulty domain.Difficulty, now time.Time) (domain.QuizSession, bool, error)
	Get(ctx context.Context, sessionID string) (domain.QuizSession, error)
	// AppendQuestion records an issued question's answer key and distractors
	// and refreshes last activity.
	AppendQuestion(ctx context.Context, sessionID string, issued domain.IssuedQuestion, now time.Time) error
	// AnswerKey returns the server-only key for an issued question.
	AnswerKey(ctx context.Context, sessionID, questionID string) (domain.AnswerKey, error)
	// RecordAnswer atomically applies one scored submission to the session
	// aggregates, rejecting a question that was already answered.
	RecordAnswer(ctx context.Context, sessionID, questionID string, correct bool, points, timeTaken float64, now time.Time) (domain.SessionStats, error)
	AskedTerms(ctx context.Context, sessionID string) ([]string, error)
	UsedWrongOptions(ctx context.Context, sessionID string) ([]string, error)
	// Expire transitions an active session to expired; terminal states are untouched.
	Expire(ctx context.Context, sessionID string) error
	// Complete transitions active to completed, failing if the session is not active.
	Complete(ctx context.Context, sessionID string, now time.Time) error
}

// TermSource supplies quiz content. Implemented over Postgres or a static inventory.
type TermSource interface {
	RandomTerm(ctx context.Context, difficulty domain.Difficulty, exclude []string) (domain.Term, error)
	MeaningsInCategory(ctx context.Context, category string, limit int, exclude []string) ([]string, error)
}

// UserService answers tier lookups for quota decisions.
type UserService interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// QuotaTracker counts questions answered per user per UTC day.
type QuotaTracker interface {
	Count(ctx context.Context, userID string, day time.Time) (int, error)
	Increment(ctx context.Context, userID string, day time.Time) error
}

// HistoryStore appends finished-session records.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.QuizHistoryEntry) error
}

// Deps bundles the collaborators the quiz service is built from. All are
// constructed once per process and passed in; nothing here is ambient state.
type Deps struct {
	Sessions  SessionStore
	Terms     TermSource
	Users     UserService
	Quota     QuotaTracker
	History   HistoryStore
	Generator *quiz.Generator
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions       SessionStore
	terms          TermSource
	users          UserService
	quota          QuotaTracker
	history        HistoryStore
	generator      *quiz.Generator
	idleWindow     time.Duration
	freeDailyLimit int
	now            func() time.Time
}

func NewQuizService(deps Deps, idleWindow time.Duration, freeDailyLimit int) *QuizService {
	return &QuizService{
		sessions:       deps.Sessions,
		terms:          deps.Terms,
		users:          deps.Users,
		quota:          deps.Quota,
		history:        deps.History,
		generator:      deps.Generator,
		idleWindow:     idleWindow,
		freeDailyLimit: freeDailyLimit,
		now:            time.Now,
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// QuestionResponse pairs a question with the session it belongs to.
type QuestionResponse struct {
	SessionID string          `json:"sessionId"`
	Question  domain.Question `json:"question"`
}

// AnswerSubmission models one answer from a client. TimeTakenSeconds is
// client-reported and trusted as-is; scoring clamps it to a sane range.
type AnswerSubmission struct {
	SessionID        string  `json:"sessionId"`
	QuestionID       string  `json:"questionId"`
	SelectedOption   string  `json:"selectedOption"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

// GetQuestion issues the next question for the user, creating or reusing their
// session. Free-tier users are refused once the daily quota is spent.
func (s *QuizService) GetQuestion(ctx context.Context, userID, difficultyRaw string) (QuestionResponse, error) {
	difficulty, err := domain.ParseDifficulty(difficultyRaw)
	if err != nil {
		return QuestionResponse{}, err
	}
	now := s.now()

	premium, err := s.users.IsPremium(ctx, userID)
	if err != nil {
		return QuestionResponse{}, fmt.Errorf("tier lookup: %w", err)
	}
	if !premium {
		count, err := s.quota.Count(ctx, userID, now)
		if err != nil {
			return QuestionResponse{}, fmt.Errorf("quota lookup: %w", err)
		}
		if count >= s.freeDailyLimit {
			return QuestionResponse{}, domain.ErrQuotaExceeded
		}
	}

	session, _, err := s.sessions.GetOrCreate(ctx, userID, difficulty, now)
	if err != nil {
		return QuestionResponse{}, err
	}

	asked, err := s.sessions.AskedTerms(ctx, session.ID)
	if err != nil {
		return QuestionResponse{}, err
	}
	// A live session's difficulty wins over the requested one.
	term, err := s.terms.RandomTerm(ctx, session.Difficulty, asked)
	if err != nil {
		return QuestionResponse{}, err
	}

	usedList, err := s.sessions.UsedWrongOptions(ctx, session.ID)
	if err != nil {
		return QuestionResponse{}, err
	}
	used := make(map[string]struct{}, len(usedList))
	for _, option := range usedList {
		used[option] = struct{}{}
	}

	issued, err := s.generator.Build(ctx, term, used)
	if err != nil {
		return QuestionResponse{}, err
	}
	if err := s.sessions.AppendQuestion(ctx, session.ID, issued, now); err != nil {
		return QuestionResponse{}, err
	}
	return QuestionResponse{SessionID: session.ID, Question: issued.Question}, nil
}

// SubmitAnswer scores one submission and applies it to the session.
// A question can only be accepted once; replays fail instead of double-scoring.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID string, submission AnswerSubmission) (domain.AnswerResult, error) {
	now := s.now()
	if _, err := s.liveSession(ctx, submission.SessionID, userID, now); err != nil {
		return domain.AnswerResult{}, err
	}

	key, err := s.sessions.AnswerKey(ctx, submission.SessionID, submission.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	timeTaken := submission.TimeTakenSeconds
	if timeTaken < 0 {
		timeTaken = 0
	}
	correct := submission.SelectedOption == key.Option
	points := domain.Score(correct, timeTaken)

	stats, err := s.sessions.RecordAnswer(ctx, submission.SessionID, submission.QuestionID, correct, points, timeTaken, now)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	if err := s.quota.Increment(ctx, userID, now); err != nil {
		// The answer is already committed; a lost increment only under-counts quota.
		log.Printf("quota increment failed for %s: %v", userID, err)
	}

	return domain.AnswerResult{
		QuestionID:   submission.QuestionID,
		Correct:      correct,
		PointsEarned: points,
		Explanation:  explanation(correct, key),
		Stats:        stats,
	}, nil
}

// GetProgress returns the running aggregates without mutating the session.
func (s *QuizService) GetProgress(ctx context.Context, userID, sessionID string) (domain.SessionStats, error) {
	session, err := s.liveSession(ctx, sessionID, userID, s.now())
	if err != nil {
		return domain.SessionStats{}, err
	}
	return domain.StatsOf(session), nil
}

// EndSession finalizes the session: it becomes terminal, a history entry is
// written, and the summary with shareable text is returned.
func (s *QuizService) EndSession(ctx context.Context, userID, sessionID string) (domain.SessionSummary, error) {
	now := s.now()
	session, err := s.liveSession(ctx, sessionID, userID, now)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	if session.QuestionsAnswered == 0 {
		return domain.SessionSummary{}, domain.ErrNoAnswersRecorded
	}

	// History goes first: if the append fails the session stays live and the
	// client can retry EndSession. The history store ignores replayed entries.
	entry := domain.QuizHistoryEntry{
		UserID:         userID,
		SessionID:      session.ID,
		PlayedOn:       now.UTC().Truncate(24 * time.Hour),
		Score:          session.TotalScore,
		CorrectCount:   session.CorrectCount,
		TotalQuestions: session.QuestionsAnswered,
		ElapsedSeconds: session.TimeSpentSeconds,
		Difficulty:     session.Difficulty,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("write history: %w", err)
	}

	if err := s.sessions.Complete(ctx, sessionID, now); err != nil {
		return domain.SessionSummary{}, err
	}

	totalPossible := float64(session.QuestionsAnswered) * domain.MaxPointsPerQuestion
	accuracy := float64(session.CorrectCount) / float64(session.QuestionsAnswered)
	return domain.SessionSummary{
		SessionID:        session.ID,
		Score:            session.TotalScore,
		TotalPossible:    totalPossible,
		CorrectCount:     session.CorrectCount,
		TotalQuestions:   session.QuestionsAnswered,
		TimeTakenSeconds: session.TimeSpentSeconds,
		ShareText: fmt.Sprintf(
			"I scored %.1f/%.0f on the slang quiz! I got %d/%d right (%.0f%%). Can you beat me? 🔥",
			session.TotalScore, totalPossible, session.CorrectCount, session.QuestionsAnswered, accuracy*100,
		),
	}, nil
}

// liveSession loads a session and enforces ownership and liveness. A session
// past its window is transitioned to expired before the error is returned, so
// it is never left ambiguously alive.
func (s *QuizService) liveSession(ctx context.Context, sessionID, userID string, now time.Time) (domain.QuizSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if session.UserID != userID {
		return domain.QuizSession{}, domain.ErrNotSessionOwner
	}
	if !session.LiveAt(now, s.idleWindow) {
		if session.Status == domain.StatusActive {
			if err := s.sessions.Expire(ctx, sessionID); err != nil {
				return domain.QuizSession{}, err
			}
		}
		return domain.QuizSession{}, domain.ErrSessionExpired
	}
	return session, nil
}

func explanation(correct bool, key domain.AnswerKey) string {
	if correct {
		return fmt.Sprintf("Correct! %q means: %s", key.Term, key.Meaning)
	}
	return fmt.Sprintf("Not quite. %q means: %s", key.Term, key.Meaning)
}
