package memory

import (
	"context"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
)

// Fact is a durable piece of knowledge distilled from a past turn.
type Fact struct {
	ID             string
	ConversationID string
	SourceTurnID   string
	Content        string
	CreatedAt      time.Time
	PersonaID      string
	Embedding      embedding.Vector
}

// Excerpt is a chunk of an imported document.
type Excerpt struct {
	ID         string
	DocumentID string
	Text       string
	Ordinal    int
	Embedding  embedding.Vector
}

// ListOptions filters ListFacts and ListExcerpts.
type ListOptions struct {
	// MissingEmbedding restricts the listing to entries without a vector.
	MissingEmbedding bool
	// Limit caps the result. Zero means no limit.
	Limit int
}

// FactIndex ranks stored facts against a query vector.
type FactIndex interface {
	// SimilaritySearchFacts returns up to limit facts at least minAgeDays
	// old, ordered by cosine similarity desc, ties newer first.
	SimilaritySearchFacts(ctx context.Context, query embedding.Vector, limit, minAgeDays int) ([]Fact, error)
}

// ExcerptIndex ranks stored excerpts against a query vector.
type ExcerptIndex interface {
	// SimilaritySearchExcerpts returns up to limit excerpts ordered by
	// cosine similarity desc.
	SimilaritySearchExcerpts(ctx context.Context, query embedding.Vector, limit int) ([]Excerpt, error)
}

// FactStore manages long-term facts.
// Implementations must be safe for concurrent use.
type FactStore interface {
	FactIndex

	// IndexFact stores a fact, replacing any fact with the same ID.
	IndexFact(ctx context.Context, fact Fact) error

	// DeleteFact removes a fact by ID.
	DeleteFact(ctx context.Context, id string) error

	// ListFacts returns stored facts oldest first.
	ListFacts(ctx context.Context, opts ListOptions) ([]Fact, error)

	// SetFactEmbedding replaces the vector of a stored fact.
	SetFactEmbedding(ctx context.Context, id string, v embedding.Vector) error
}

// ExcerptStore manages document excerpts.
// Implementations must be safe for concurrent use.
type ExcerptStore interface {
	ExcerptIndex

	// IndexExcerpt stores an excerpt, replacing any excerpt with the same ID.
	IndexExcerpt(ctx context.Context, ex Excerpt) error

	// ListExcerpts returns stored excerpts by document and ordinal.
	ListExcerpts(ctx context.Context, opts ListOptions) ([]Excerpt, error)

	// SetExcerptEmbedding replaces the vector of a stored excerpt.
	SetExcerptEmbedding(ctx context.Context, id string, v embedding.Vector) error
}
