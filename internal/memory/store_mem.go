package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
)

// InMemoryStore is a thread-safe, in-memory FactStore and ExcerptStore.
// Similarity search scans every stored vector.
type InMemoryStore struct {
	mu       sync.RWMutex
	facts    []Fact
	factIdx  map[string]int // id → index in facts slice
	excerpts []Excerpt
	exIdx    map[string]int
	now      func() time.Time
}

// NewInMemoryStore creates a new empty memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		factIdx: make(map[string]int),
		exIdx:   make(map[string]int),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for fact age filtering.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

// Compile-time interface checks.
var (
	_ FactStore    = (*InMemoryStore)(nil)
	_ ExcerptStore = (*InMemoryStore)(nil)
)

// IndexFact stores a fact, updating it in place when the ID exists.
func (s *InMemoryStore) IndexFact(_ context.Context, fact Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fact.Embedding = slices.Clone(fact.Embedding)
	if i, exists := s.factIdx[fact.ID]; exists {
		s.facts[i] = fact
		return nil
	}
	s.factIdx[fact.ID] = len(s.facts)
	s.facts = append(s.facts, fact)
	return nil
}

// DeleteFact removes a fact by ID.
func (s *InMemoryStore) DeleteFact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.factIdx[id]
	if !ok {
		return ErrFactNotFound
	}

	// Replace with last element and shrink (swap-delete).
	last := len(s.facts) - 1
	if idx != last {
		s.facts[idx] = s.facts[last]
		s.factIdx[s.facts[idx].ID] = idx
	}
	s.facts = s.facts[:last]
	delete(s.factIdx, id)
	return nil
}

// ListFacts returns facts oldest first.
func (s *InMemoryStore) ListFacts(_ context.Context, opts ListOptions) ([]Fact, error) {
	s.mu.RLock()
	out := make([]Fact, 0, len(s.facts))
	for _, f := range s.facts {
		if opts.MissingEmbedding && len(f.Embedding) > 0 {
			continue
		}
		out = append(out, f)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// SetFactEmbedding replaces the vector of a stored fact.
func (s *InMemoryStore) SetFactEmbedding(_ context.Context, id string, v embedding.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.factIdx[id]
	if !ok {
		return ErrFactNotFound
	}
	s.facts[idx].Embedding = slices.Clone(v)
	return nil
}

// SimilaritySearchFacts ranks every stored fact against query.
func (s *InMemoryStore) SimilaritySearchFacts(_ context.Context, query embedding.Vector, limit, minAgeDays int) ([]Fact, error) {
	s.mu.RLock()
	facts := slices.Clone(s.facts)
	s.mu.RUnlock()
	return RankFacts(facts, query, limit, minAgeDays, s.now()), nil
}

// IndexExcerpt stores an excerpt, updating it in place when the ID exists.
func (s *InMemoryStore) IndexExcerpt(_ context.Context, ex Excerpt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex.Embedding = slices.Clone(ex.Embedding)
	if i, exists := s.exIdx[ex.ID]; exists {
		s.excerpts[i] = ex
		return nil
	}
	s.exIdx[ex.ID] = len(s.excerpts)
	s.excerpts = append(s.excerpts, ex)
	return nil
}

// ListExcerpts returns excerpts ordered by document and ordinal.
func (s *InMemoryStore) ListExcerpts(_ context.Context, opts ListOptions) ([]Excerpt, error) {
	s.mu.RLock()
	out := make([]Excerpt, 0, len(s.excerpts))
	for _, ex := range s.excerpts {
		if opts.MissingEmbedding && len(ex.Embedding) > 0 {
			continue
		}
		out = append(out, ex)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// SetExcerptEmbedding replaces the vector of a stored excerpt.
func (s *InMemoryStore) SetExcerptEmbedding(_ context.Context, id string, v embedding.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.exIdx[id]
	if !ok {
		return ErrExcerptNotFound
	}
	s.excerpts[idx].Embedding = slices.Clone(v)
	return nil
}

// SimilaritySearchExcerpts ranks every stored excerpt against query.
func (s *InMemoryStore) SimilaritySearchExcerpts(_ context.Context, query embedding.Vector, limit int) ([]Excerpt, error) {
	s.mu.RLock()
	excerpts := slices.Clone(s.excerpts)
	s.mu.RUnlock()
	return RankExcerpts(excerpts, query, limit), nil
}

// Len returns the number of stored facts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}
