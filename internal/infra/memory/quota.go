package memory

import (
	"context"
	"sync"
	"time"
)

// QuotaTracker counts answered questions per user per UTC day in memory.
type QuotaTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewQuotaTracker() *QuotaTracker {
	return &QuotaTracker{counts: make(map[string]int)}
}

func (q *QuotaTracker) Count(_ context.Context, userID string, day time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[quotaKey(userID, day)], nil
}

func (q *QuotaTracker) Increment(_ context.Context, userID string, day time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts[quotaKey(userID, day)]++
	return nil
}

func quotaKey(userID string, day time.Time) string {
	return userID + ":" + day.UTC().Format("2006-01-02")
}
