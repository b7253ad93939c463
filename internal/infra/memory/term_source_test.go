package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

func sampleTerms() []domain.Term {
	return []domain.Term{
		{Name: "bussin", Meaning: "really good", Category: "food", Difficulty: domain.DifficultyBeginner},
		{Name: "mid", Meaning: "mediocre", Category: "approval", Difficulty: domain.DifficultyBeginner},
		{Name: "snack", Meaning: "an attractive person", Category: "food", Difficulty: domain.DifficultyIntermediate},
	}
}

func TestTermCacheCachesLoads(t *testing.T) {
	loader := &countingLoader{TermLoader: NewStaticTermLoader(sampleTerms())}
	cache := NewTermCache(loader, time.Minute)

	if _, err := cache.RandomTerm(context.Background(), domain.DifficultyBeginner, nil); err != nil {
		t.Fatalf("random term: %v", err)
	}
	if loader.difficultyCalls != 1 {
		t.Fatalf("expected loader once, got %d", loader.difficultyCalls)
	}

	if _, err := cache.RandomTerm(context.Background(), domain.DifficultyBeginner, nil); err != nil {
		t.Fatalf("random term 2: %v", err)
	}
	if loader.difficultyCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.difficultyCalls)
	}
}

func TestRandomTermHonorsExclusions(t *testing.T) {
	cache := NewTermCache(NewStaticTermLoader(sampleTerms()), time.Minute)

	term, err := cache.RandomTerm(context.Background(), domain.DifficultyBeginner, []string{"bussin"})
	if err != nil {
		t.Fatalf("random term: %v", err)
	}
	if term.Name != "mid" {
		t.Fatalf("expected the one remaining term, got %q", term.Name)
	}

	_, err = cache.RandomTerm(context.Background(), domain.DifficultyBeginner, []string{"bussin", "mid"})
	if !errors.Is(err, domain.ErrTermInventory) {
		t.Fatalf("expected inventory error, got %v", err)
	}
}

func TestMeaningsInCategory(t *testing.T) {
	cache := NewTermCache(NewStaticTermLoader(sampleTerms()), time.Minute)

	meanings, err := cache.MeaningsInCategory(context.Background(), "food", 5, []string{"bussin"})
	if err != nil {
		t.Fatalf("meanings: %v", err)
	}
	if len(meanings) != 1 || meanings[0] != "an attractive person" {
		t.Fatalf("unexpected meanings %v", meanings)
	}
}

type countingLoader struct {
	TermLoader
	difficultyCalls int
}

func (l *countingLoader) TermsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Term, error) {
	l.difficultyCalls++
	return l.TermLoader.TermsByDifficulty(ctx, difficulty)
}
