// Package retrieval embeds queries and ranks long-term facts and document
// excerpts against them, and renders the results for a prompt.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/memory"
)

// Config holds the collaborators of a Retriever.
type Config struct {
	// Embedder embeds queries: the shared engine or one of its remote bindings.
	Embedder embedding.Embedder
	Facts    memory.FactIndex
	Excerpts memory.ExcerptIndex
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Retriever returns the facts and excerpts most similar to a query.
// It holds no mutable state and is safe for concurrent use.
type Retriever struct {
	embedder embedding.Embedder
	facts    memory.FactIndex
	excerpts memory.ExcerptIndex
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a Retriever.
func New(cfg Config) *Retriever {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/flemzord/confidant/internal/retrieval")
	}
	return &Retriever{
		embedder: cfg.Embedder,
		facts:    cfg.Facts,
		excerpts: cfg.Excerpts,
		logger:   cfg.Logger.With("component", "retrieval"),
		tracer:   cfg.Tracer,
	}
}

// WithEmbedder returns a copy of r that embeds queries with e.
func (r *Retriever) WithEmbedder(e embedding.Embedder) *Retriever {
	cp := *r
	cp.embedder = e
	return &cp
}

// RetrieveFacts returns up to limit facts at least minAgeDays old, most
// similar first. A blank query or non-positive limit returns nothing.
func (r *Retriever) RetrieveFacts(ctx context.Context, query string, limit, minAgeDays int) (_ []memory.Fact, err error) {
	if limit <= 0 || strings.TrimSpace(query) == "" || r.facts == nil {
		return nil, nil
	}

	ctx, span := r.tracer.Start(ctx, "retrieval.RetrieveFacts", trace.WithAttributes(
		attribute.Int("limit", limit),
		attribute.Int("min_age_days", minAgeDays),
	))
	defer func() { endSpan(span, err) }()

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query: %w", err)
	}
	facts, err := r.facts.SimilaritySearchFacts(ctx, qv, limit, minAgeDays)
	if err != nil {
		return nil, fmt.Errorf("retrieval: searching facts: %w", err)
	}

	span.SetAttributes(attribute.Int("results", len(facts)))
	r.logger.Debug("facts retrieved", "count", len(facts), "limit", limit)
	return facts, nil
}

// RetrieveExcerpts returns up to limit excerpts, most similar first.
func (r *Retriever) RetrieveExcerpts(ctx context.Context, query string, limit int) (_ []memory.Excerpt, err error) {
	if limit <= 0 || strings.TrimSpace(query) == "" || r.excerpts == nil {
		return nil, nil
	}

	ctx, span := r.tracer.Start(ctx, "retrieval.RetrieveExcerpts", trace.WithAttributes(attribute.Int("limit", limit)))
	defer func() { endSpan(span, err) }()

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query: %w", err)
	}
	excerpts, err := r.excerpts.SimilaritySearchExcerpts(ctx, qv, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: searching excerpts: %w", err)
	}

	span.SetAttributes(attribute.Int("results", len(excerpts)))
	r.logger.Debug("excerpts retrieved", "count", len(excerpts), "limit", limit)
	return excerpts, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
