package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

const wrongOptionsPerQuestion = 3

var optionIDs = []string{"a", "b", "c", "d"}

// genericFallback supplies distractors when the category pool and similar
// terms are both exhausted for a session.
var genericFallback = []string{
	"A type of dance move",
	"An old-fashioned insult",
	"A way to describe bad weather",
	"Something related to money",
	"A term for a close friend",
	"An expression of disbelief",
	"A kind of celebration",
	"A style of clothing",
	"A way to describe being tired",
	"Something extremely boring",
	"A compliment about appearance",
	"A warning to be careful",
}

// SimilarMeanings looks up meanings of other terms in a category, excluding
// the named terms. Backed by the term source's similarity lookup.
type SimilarMeanings func(ctx context.Context, category string, limit int, exclude []string) ([]string, error)

// Generator builds one question at a time from a term, the category distractor
// pool, and the similarity lookup.
type Generator struct {
	pool    *Pool
	similar SimilarMeanings

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(pool *Pool, similar SimilarMeanings) *Generator {
	return &Generator{
		pool:    pool,
		similar: similar,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Build assembles a question for the term: one correct meaning plus three
// distractors, all normalized identically, shuffled, and labeled a-d.
// Distractors already shown this session (used) are never repeated.
func (g *Generator) Build(ctx context.Context, term domain.Term, used map[string]struct{}) (domain.IssuedQuestion, error) {
	correct := Normalize(term.Meaning)

	taken := map[string]struct{}{correct: {}}
	for option := range used {
		taken[option] = struct{}{}
	}

	wrong := g.takeShuffled(g.pool.Options(term.Category), taken, wrongOptionsPerQuestion)

	if len(wrong) < wrongOptionsPerQuestion && g.similar != nil {
		meanings, err := g.similar(ctx, term.Category, wrongOptionsPerQuestion*2, []string{term.Name})
		if err == nil {
			wrong = append(wrong, g.takeShuffled(meanings, taken, wrongOptionsPerQuestion-len(wrong))...)
		}
	}

	if len(wrong) < wrongOptionsPerQuestion {
		wrong = append(wrong, g.takeShuffled(genericFallback, taken, wrongOptionsPerQuestion-len(wrong))...)
	}
	if len(wrong) < wrongOptionsPerQuestion {
		return domain.IssuedQuestion{}, domain.ErrTermInventory
	}

	texts := append([]string{correct}, wrong...)
	g.shuffle(texts)

	options := make([]domain.Option, len(texts))
	correctID := ""
	for i, text := range texts {
		options[i] = domain.Option{ID: optionIDs[i], Text: text}
		if text == correct {
			correctID = optionIDs[i]
		}
	}

	question := domain.Question{
		QuestionID:   domain.NewID(),
		SlangTerm:    term.Name,
		QuestionText: fmt.Sprintf("What does %q mean?", term.Name),
		Options:      options,
		ContextHint:  contextHint(term),
	}
	return domain.IssuedQuestion{
		Question:     question,
		Key:          domain.AnswerKey{Option: correctID, Term: term.Name, Meaning: correct},
		WrongOptions: wrong,
	}, nil
}

// takeShuffled normalizes candidates, drops anything already taken, shuffles,
// and returns up to n entries, marking them taken.
func (g *Generator) takeShuffled(candidates []string, taken map[string]struct{}, n int) []string {
	available := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		normalized := Normalize(candidate)
		if normalized == "" {
			continue
		}
		if _, ok := taken[normalized]; ok {
			continue
		}
		taken[normalized] = struct{}{}
		available = append(available, normalized)
	}
	g.shuffle(available)
	if len(available) > n {
		available = available[:n]
	}
	return available
}

func (g *Generator) shuffle(items []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func contextHint(term domain.Term) string {
	if term.Example == "" {
		return ""
	}
	return fmt.Sprintf("Heard in the wild: %q", term.Example)
}
