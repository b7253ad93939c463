package memory

import (
	"context"
	"sync"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

// HistoryStore collects finished-session records in memory. Replayed entries
// for the same (user, date, session) key are ignored, like the Postgres store.
type HistoryStore struct {
	mu      sync.Mutex
	entries []domain.QuizHistoryEntry
	seen    map[string]struct{}
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{seen: make(map[string]struct{})}
}

func (h *HistoryStore) Append(_ context.Context, entry domain.QuizHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := entry.UserID + "|" + entry.PlayedOn.Format("2006-01-02") + "|" + entry.SessionID
	if _, dup := h.seen[key]; dup {
		return nil
	}
	h.seen[key] = struct{}{}
	h.entries = append(h.entries, entry)
	return nil
}

// Entries returns a snapshot of everything appended so far.
func (h *HistoryStore) Entries() []domain.QuizHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.QuizHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
