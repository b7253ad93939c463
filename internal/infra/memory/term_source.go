package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

// TermLoader fetches term inventory from a backing store (e.g., Postgres).
type TermLoader interface {
	TermsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Term, error)
	TermsByCategory(ctx context.Context, category string) ([]domain.Term, error)
}

// TermCache caches term lists with TTL to avoid repeated backing-store hits
// and serves the random-term and similarity lookups from them.
type TermCache struct {
	loader TermLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTerms
}

type cachedTerms struct {
	terms     []domain.Term
	expiresAt time.Time
}

func NewTermCache(loader TermLoader, ttl time.Duration) *TermCache {
	return &TermCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTerms),
	}
}

// RandomTerm picks one term of the given difficulty whose name is not excluded.
func (c *TermCache) RandomTerm(ctx context.Context, difficulty domain.Difficulty, exclude []string) (domain.Term, error) {
	terms, err := c.load(ctx, "difficulty:"+string(difficulty), func(ctx context.Context) ([]domain.Term, error) {
		return c.loader.TermsByDifficulty(ctx, difficulty)
	})
	if err != nil {
		return domain.Term{}, err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}
	available := make([]domain.Term, 0, len(terms))
	for _, term := range terms {
		if _, ok := excluded[term.Name]; !ok {
			available = append(available, term)
		}
	}
	if len(available) == 0 {
		return domain.Term{}, domain.ErrTermInventory
	}

	c.rndMu.Lock()
	picked := available[c.rnd.Intn(len(available))]
	c.rndMu.Unlock()
	return picked, nil
}

// MeaningsInCategory returns meanings of other terms in the category, used as
// distractor supplements when the curated pool runs dry.
func (c *TermCache) MeaningsInCategory(ctx context.Context, category string, limit int, exclude []string) ([]string, error) {
	terms, err := c.load(ctx, "category:"+category, func(ctx context.Context) ([]domain.Term, error) {
		return c.loader.TermsByCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}
	meanings := make([]string, 0, limit)
	for _, term := range terms {
		if _, ok := excluded[term.Name]; ok {
			continue
		}
		meanings = append(meanings, term.Meaning)
		if len(meanings) >= limit {
			break
		}
	}
	return meanings, nil
}

func (c *TermCache) load(ctx context.Context, key string, fetch func(context.Context) ([]domain.Term, error)) ([]domain.Term, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.terms, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.terms, nil
		}
		c.mu.RUnlock()

		terms, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = cachedTerms{terms: terms, expiresAt: now.Add(c.ttl)}
		c.mu.Unlock()
		return terms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Term), nil
}

// StaticTermLoader serves a fixed term inventory (useful for tests/demos and
// redis-less runs).
type StaticTermLoader struct {
	terms []domain.Term
}

func NewStaticTermLoader(terms []domain.Term) *StaticTermLoader {
	return &StaticTermLoader{terms: terms}
}

func (l *StaticTermLoader) TermsByDifficulty(_ context.Context, difficulty domain.Difficulty) ([]domain.Term, error) {
	out := make([]domain.Term, 0, len(l.terms))
	for _, term := range l.terms {
		if term.Difficulty == difficulty {
			out = append(out, term)
		}
	}
	return out, nil
}

func (l *StaticTermLoader) TermsByCategory(_ context.Context, category string) ([]domain.Term, error) {
	out := make([]domain.Term, 0, len(l.terms))
	for _, term := range l.terms {
		if term.Category == category {
			out = append(out, term)
		}
	}
	return out, nil
}
