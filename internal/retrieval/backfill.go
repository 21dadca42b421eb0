package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/memory"
)

const defaultBackfillBatch = 32

// BackfillReport counts the vectors written by a backfill run.
type BackfillReport struct {
	Facts    int `json:"facts"`
	Excerpts int `json:"excerpts"`
}

// Backfiller recomputes stored vectors through the shared engine, for
// entries indexed before a model was available or after a model switch.
type Backfiller struct {
	embedder  embedding.Embedder
	facts     memory.FactStore
	excerpts  memory.ExcerptStore
	batchSize int
	logger    *slog.Logger
}

// NewBackfiller creates a Backfiller. Either store may be nil.
func NewBackfiller(e embedding.Embedder, facts memory.FactStore, excerpts memory.ExcerptStore, batchSize int, logger *slog.Logger) *Backfiller {
	if batchSize <= 0 {
		batchSize = defaultBackfillBatch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		embedder:  e,
		facts:     facts,
		excerpts:  excerpts,
		batchSize: batchSize,
		logger:    logger.With("component", "backfill"),
	}
}

// Run embeds every fact and excerpt lacking a vector, or all of them when
// all is set. It stops at the first error and reports what was written.
func (b *Backfiller) Run(ctx context.Context, all bool) (BackfillReport, error) {
	var report BackfillReport
	opts := memory.ListOptions{MissingEmbedding: !all}

	if b.facts != nil {
		facts, err := b.facts.ListFacts(ctx, opts)
		if err != nil {
			return report, fmt.Errorf("retrieval: listing facts: %w", err)
		}
		texts := make([]string, len(facts))
		for i, f := range facts {
			texts[i] = f.Content
		}
		n, err := b.embedAll(ctx, texts, func(i int, v embedding.Vector) error {
			return b.facts.SetFactEmbedding(ctx, facts[i].ID, v)
		})
		report.Facts = n
		if err != nil {
			return report, fmt.Errorf("retrieval: backfilling facts: %w", err)
		}
	}

	if b.excerpts != nil {
		excerpts, err := b.excerpts.ListExcerpts(ctx, opts)
		if err != nil {
			return report, fmt.Errorf("retrieval: listing excerpts: %w", err)
		}
		texts := make([]string, len(excerpts))
		for i, ex := range excerpts {
			texts[i] = ex.Text
		}
		n, err := b.embedAll(ctx, texts, func(i int, v embedding.Vector) error {
			return b.excerpts.SetExcerptEmbedding(ctx, excerpts[i].ID, v)
		})
		report.Excerpts = n
		if err != nil {
			return report, fmt.Errorf("retrieval: backfilling excerpts: %w", err)
		}
	}

	if report.Facts > 0 || report.Excerpts > 0 {
		b.logger.Info("backfill complete", "facts", report.Facts, "excerpts", report.Excerpts, "all", all)
	}
	return report, nil
}

// embedAll embeds texts batch by batch and hands each vector to store.
// Blank texts are skipped so they stay eligible for a later run.
func (b *Backfiller) embedAll(ctx context.Context, texts []string, store func(i int, v embedding.Vector) error) (int, error) {
	written := 0
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return written, err
		}
		for j, v := range vecs {
			if isZero(v) {
				continue
			}
			if err := store(start+j, v); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func isZero(v embedding.Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
