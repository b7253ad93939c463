package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionStore(client, 15*time.Minute, 24*time.Hour), mr
}

func TestGetOrCreateSetsSessionHashWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	session, created, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatalf("expected a fresh session")
	}
	if !mr.Exists(sessionKey(session.ID)) {
		t.Fatalf("expected session hash in redis")
	}
	if ttl := mr.TTL(sessionKey(session.ID)); ttl != 24*time.Hour {
		t.Fatalf("expected 24h TTL, got %v", ttl)
	}
	if got, _ := mr.Get(userKey("u1")); got != session.ID {
		t.Fatalf("expected user pointer at %s, got %s", session.ID, got)
	}
	if session.Status != domain.StatusActive || session.UserID != "u1" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestGetOrCreateReusesLiveAndReplacesIdle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, _, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	reused, created, err := store.GetOrCreate(ctx, "u1", domain.DifficultyAdvanced, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created || reused.ID != first.ID {
		t.Fatalf("expected reuse, got created=%v id=%s", created, reused.ID)
	}
	if reused.Difficulty != domain.DifficultyBeginner {
		t.Fatalf("live session difficulty must win, got %s", reused.Difficulty)
	}

	replacement, created, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || replacement.ID == first.ID {
		t.Fatalf("expected replacement after idle window")
	}

	stale, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if stale.Status != domain.StatusExpired {
		t.Fatalf("expected stale session expired, got %s", stale.Status)
	}
}

func TestRecordAnswerAtomicIncrementsAndDuplicateRejection(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	session, _, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	issued := domain.IssuedQuestion{
		Question:     domain.Question{QuestionID: "q1"},
		Key:          domain.AnswerKey{Option: "c", Term: "bussin", Meaning: "Really good"},
		WrongOptions: []string{"Just average", "Barely edible", "Cooked at home"},
	}
	if err := store.AppendQuestion(ctx, session.ID, issued, now); err != nil {
		t.Fatalf("append question: %v", err)
	}

	key, err := store.AnswerKey(ctx, session.ID, "q1")
	if err != nil || key.Option != "c" {
		t.Fatalf("answer key = %+v, err %v", key, err)
	}
	if _, err := store.AnswerKey(ctx, session.ID, "q-missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	stats, err := store.RecordAnswer(ctx, session.ID, "q1", true, 8.5, 5, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if stats.QuestionsAnswered != 1 || stats.CorrectCount != 1 || stats.TotalScore != 8.5 || stats.TimeSpentSeconds != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := store.RecordAnswer(ctx, session.ID, "q1", true, 8.5, 5, now.Add(time.Minute)); !errors.Is(err, domain.ErrQuestionAnswered) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	used, err := store.UsedWrongOptions(ctx, session.ID)
	if err != nil {
		t.Fatalf("used options: %v", err)
	}
	if len(used) != 3 {
		t.Fatalf("expected 3 used options, got %v", used)
	}
	asked, err := store.AskedTerms(ctx, session.ID)
	if err != nil || len(asked) != 1 || asked[0] != "bussin" {
		t.Fatalf("asked terms = %v, err %v", asked, err)
	}
}

func TestAnsweredSetSharesSessionTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	session, _, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	issued := domain.IssuedQuestion{
		Question: domain.Question{QuestionID: "q1"},
		Key:      domain.AnswerKey{Option: "a", Term: "bussin", Meaning: "Really good"},
	}
	if err := store.AppendQuestion(ctx, session.ID, issued, now); err != nil {
		t.Fatalf("append question: %v", err)
	}
	if _, err := store.RecordAnswer(ctx, session.ID, "q1", true, 8.5, 5, now); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	// The answered set must not outlive the session hash.
	if ttl := mr.TTL(answeredKey(session.ID)); ttl != 24*time.Hour {
		t.Fatalf("expected answered set to ride the 24h session TTL, got %v", ttl)
	}
}

func TestRecordAnswerRejectsTerminalSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	session, _, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	issued := domain.IssuedQuestion{
		Question: domain.Question{QuestionID: "q1"},
		Key:      domain.AnswerKey{Option: "a", Term: "bussin", Meaning: "Really good"},
	}
	if err := store.AppendQuestion(ctx, session.ID, issued, now); err != nil {
		t.Fatalf("append question: %v", err)
	}
	if err := store.Complete(ctx, session.ID, now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := store.RecordAnswer(ctx, session.ID, "q1", true, 8.5, 5, now); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected terminal rejection, got %v", err)
	}

	done, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.QuestionsAnswered != 0 || done.TotalScore != 0 {
		t.Fatalf("completed session was mutated: %+v", done)
	}
}

func TestCompleteTransitionIsConditional(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	session, _, err := store.GetOrCreate(ctx, "u1", domain.DifficultyBeginner, now)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := store.Complete(ctx, session.ID, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if mr.Exists(userKey("u1")) {
		t.Fatalf("expected user pointer cleared on completion")
	}
	if err := store.Complete(ctx, session.ID, now); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected terminal rejection, got %v", err)
	}

	done, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
