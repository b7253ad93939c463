package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

type historyRow struct {
	bun.BaseModel `bun:"table:quiz_history"`

	UserID         string    `bun:"user_id,pk"`
	PlayedOn       time.Time `bun:"played_on,pk"`
	SessionID      string    `bun:"session_id,pk"`
	Score          float64   `bun:"score"`
	CorrectCount   int       `bun:"correct_count"`
	TotalQuestions int       `bun:"total_questions"`
	ElapsedSeconds float64   `bun:"elapsed_seconds"`
	Difficulty     string    `bun:"difficulty"`
}

// HistoryStore appends finished-session records to the quiz_history table.
// Entries are immutable; a replayed finalization is a no-op on conflict.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (h *HistoryStore) Append(ctx context.Context, entry domain.QuizHistoryEntry) error {
	row := historyRow{
		UserID:         entry.UserID,
		PlayedOn:       entry.PlayedOn,
		SessionID:      entry.SessionID,
		Score:          entry.Score,
		CorrectCount:   entry.CorrectCount,
		TotalQuestions: entry.TotalQuestions,
		ElapsedSeconds: entry.ElapsedSeconds,
		Difficulty:     string(entry.Difficulty),
	}
	if _, err := h.db.NewInsert().Model(&row).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
