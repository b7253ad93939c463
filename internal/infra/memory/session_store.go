package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

type sessionRecord struct {
	session  domain.QuizSession
	answers  map[string]domain.AnswerKey
	used     []string
	answered map[string]struct{}
}

// SessionStore is an in-memory implementation of app.SessionStore. All methods
// run under one mutex, which gives the same atomicity the Redis scripts do.
type SessionStore struct {
	idleWindow time.Duration
	ttl        time.Duration

	mu           sync.Mutex
	byID         map[string]*sessionRecord
	activeByUser map[string]string
}

func NewSessionStore(idleWindow, ttl time.Duration) *SessionStore {
	return &SessionStore{
		idleWindow:   idleWindow,
		ttl:          ttl,
		byID:         make(map[string]*sessionRecord),
		activeByUser: make(map[string]string),
	}
}

func (s *SessionStore) GetOrCreate(_ context.Context, userID string, difficulty domain.Difficulty, now time.Time) (domain.QuizSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid, ok := s.activeByUser[userID]; ok {
		if rec, ok := s.byID[sid]; ok {
			if rec.session.LiveAt(now, s.idleWindow) {
				return rec.session, false, nil
			}
			if rec.session.Status == domain.StatusActive {
				rec.session.Status = domain.StatusExpired
			}
		}
		delete(s.activeByUser, userID)
	}

	session := domain.QuizSession{
		ID:           domain.NewID(),
		UserID:       userID,
		Difficulty:   difficulty,
		Status:       domain.StatusActive,
		StartedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.ttl),
	}
	s.byID[session.ID] = &sessionRecord{
		session:  session,
		answers:  make(map[string]domain.AnswerKey),
		answered: make(map[string]struct{}),
	}
	s.activeByUser[userID] = session.ID
	return session, true, nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return rec.session, nil
}

func (s *SessionStore) AppendQuestion(_ context.Context, sessionID string, issued domain.IssuedQuestion, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.answers[issued.Question.QuestionID] = issued.Key
	rec.used = append(rec.used, issued.WrongOptions...)
	rec.session.LastActivity = now
	return nil
}

func (s *SessionStore) AnswerKey(_ context.Context, sessionID, questionID string) (domain.AnswerKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.AnswerKey{}, domain.ErrSessionNotFound
	}
	key, ok := rec.answers[questionID]
	if !ok {
		return domain.AnswerKey{}, domain.ErrQuestionNotFound
	}
	return key, nil
}

func (s *SessionStore) RecordAnswer(_ context.Context, sessionID, questionID string, correct bool, points, timeTaken float64, now time.Time) (domain.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.SessionStats{}, domain.ErrSessionNotFound
	}
	if rec.session.Status != domain.StatusActive {
		return domain.SessionStats{}, domain.ErrSessionExpired
	}
	if _, ok := rec.answers[questionID]; !ok {
		return domain.SessionStats{}, domain.ErrQuestionNotFound
	}
	if _, dup := rec.answered[questionID]; dup {
		return domain.SessionStats{}, domain.ErrQuestionAnswered
	}
	rec.answered[questionID] = struct{}{}

	rec.session.QuestionsAnswered++
	if correct {
		rec.session.CorrectCount++
	}
	rec.session.TotalScore += points
	rec.session.TimeSpentSeconds += timeTaken
	rec.session.LastActivity = now
	return domain.StatsOf(rec.session), nil
}

func (s *SessionStore) AskedTerms(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	terms := make([]string, 0, len(rec.answers))
	for _, key := range rec.answers {
		terms = append(terms, key.Term)
	}
	return terms, nil
}

func (s *SessionStore) UsedWrongOptions(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	used := make([]string, len(rec.used))
	copy(used, rec.used)
	return used, nil
}

func (s *SessionStore) Expire(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.session.Status == domain.StatusActive {
		rec.session.Status = domain.StatusExpired
	}
	if s.activeByUser[rec.session.UserID] == sessionID {
		delete(s.activeByUser, rec.session.UserID)
	}
	return nil
}

func (s *SessionStore) Complete(_ context.Context, sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.session.Status != domain.StatusActive {
		return domain.ErrSessionExpired
	}
	rec.session.Status = domain.StatusCompleted
	rec.session.LastActivity = now
	if s.activeByUser[rec.session.UserID] == sessionID {
		delete(s.activeByUser, rec.session.UserID)
	}
	return nil
}
