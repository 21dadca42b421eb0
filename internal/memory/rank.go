package memory

import (
	"cmp"
	"slices"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
)

const day = 24 * time.Hour

// AgeDays returns the number of whole days between created and now.
// Timestamps in the future count as zero days old.
func AgeDays(created, now time.Time) int {
	d := now.Sub(created)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

// RankFacts scores facts against query and returns the top limit of them.
// Facts without a comparable vector or younger than minAgeDays are skipped.
func RankFacts(facts []Fact, query embedding.Vector, limit, minAgeDays int, now time.Time) []Fact {
	if limit <= 0 || len(query) == 0 {
		return []Fact{}
	}

	type scored struct {
		fact  Fact
		score float64
	}
	candidates := make([]scored, 0, len(facts))
	for _, f := range facts {
		if len(f.Embedding) != len(query) {
			continue
		}
		if AgeDays(f.CreatedAt, now) < minAgeDays {
			continue
		}
		candidates = append(candidates, scored{fact: f, score: embedding.CosineSimilarity(query, f.Embedding)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Or(
			cmp.Compare(b.score, a.score),
			b.fact.CreatedAt.Compare(a.fact.CreatedAt),
			cmp.Compare(a.fact.ID, b.fact.ID),
		)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Fact, len(candidates))
	for i, c := range candidates {
		out[i] = c.fact
	}
	return out
}

// RankExcerpts scores excerpts against query and returns the top limit of
// them. Ties keep document order.
func RankExcerpts(excerpts []Excerpt, query embedding.Vector, limit int) []Excerpt {
	if limit <= 0 || len(query) == 0 {
		return []Excerpt{}
	}

	type scored struct {
		ex    Excerpt
		score float64
	}
	candidates := make([]scored, 0, len(excerpts))
	for _, ex := range excerpts {
		if len(ex.Embedding) != len(query) {
			continue
		}
		candidates = append(candidates, scored{ex: ex, score: embedding.CosineSimilarity(query, ex.Embedding)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Or(
			cmp.Compare(b.score, a.score),
			cmp.Compare(a.ex.DocumentID, b.ex.DocumentID),
			cmp.Compare(a.ex.Ordinal, b.ex.Ordinal),
		)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Excerpt, len(candidates))
	for i, c := range candidates {
		out[i] = c.ex
	}
	return out
}
