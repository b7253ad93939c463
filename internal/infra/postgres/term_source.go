package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

// TermSource loads the approved slang term inventory from Postgres. It
// implements the TermLoader side of the caches; selection logic lives there.
type TermSource struct {
	pool *pgxpool.Pool
}

func NewTermSource(pool *pgxpool.Pool) *TermSource {
	return &TermSource{pool: pool}
}

func (s *TermSource) TermsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Term, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, meaning, example, category, difficulty FROM terms WHERE difficulty=$1`,
		string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("load terms by difficulty: %w", err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

func (s *TermSource) TermsByCategory(ctx context.Context, category string) ([]domain.Term, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, meaning, example, category, difficulty FROM terms WHERE category=$1`,
		category)
	if err != nil {
		return nil, fmt.Errorf("load terms by category: %w", err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTerms(rows pgxRows) ([]domain.Term, error) {
	var terms []domain.Term
	for rows.Next() {
		var term domain.Term
		var difficulty string
		if err := rows.Scan(&term.Name, &term.Meaning, &term.Example, &term.Category, &difficulty); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		term.Difficulty = domain.Difficulty(difficulty)
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate terms: %w", err)
	}
	return terms, nil
}
