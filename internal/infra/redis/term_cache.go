package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

const termKeyPrefix = "quiz:terms:"

// TermLoader fetches term inventory from a backing store (e.g., Postgres).
type TermLoader interface {
	TermsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Term, error)
	TermsByCategory(ctx context.Context, category string) ([]domain.Term, error)
}

// TermCache caches term lists as JSON in Redis and falls back to the loader on
// cache miss, collapsing concurrent misses with singleflight.
type TermCache struct {
	client *redis.Client
	loader TermLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTermCache(client *redis.Client, loader TermLoader, ttl time.Duration) *TermCache {
	return &TermCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TermCache) RandomTerm(ctx context.Context, difficulty domain.Difficulty, exclude []string) (domain.Term, error) {
	terms, err := c.load(ctx, termKeyPrefix+"difficulty:"+string(difficulty), func(ctx context.Context) ([]domain.Term, error) {
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

func (c *TermCache) MeaningsInCategory(ctx context.Context, category string, limit int, exclude []string) ([]string, error) {
	terms, err := c.load(ctx, termKeyPrefix+"category:"+category, func(ctx context.Context) ([]domain.Term, error) {
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
	if terms, ok := c.cached(ctx, key); ok {
		return terms, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if terms, ok := c.cached(ctx, key); ok {
			return terms, nil
		}

		terms, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(terms); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return terms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Term), nil
}

func (c *TermCache) cached(ctx context.Context, key string) ([]domain.Term, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var terms []domain.Term
	if err := json.Unmarshal(raw, &terms); err != nil {
		return nil, false
	}
	return terms, true
}

func (c *TermCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
