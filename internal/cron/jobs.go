package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/confidant/internal/retrieval"
)

// IdleUnloader is the part of the embedding engine the idle job needs.
type IdleUnloader interface {
	UnloadIfIdle(ctx context.Context, maxIdle time.Duration) (bool, error)
}

// ModelIdleJob unloads the local embedding model once it has been unused
// for MaxIdle. The unload goes through the engine lifecycle section, so it
// never interrupts an inference.
type ModelIdleJob struct {
	Engine       IdleUnloader
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*ModelIdleJob)(nil)

// Name implements Job.
func (j *ModelIdleJob) Name() string { return "model_idle_unload" }

// Schedule implements Job.
func (j *ModelIdleJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run unloads the model if it is idle.
func (j *ModelIdleJob) Run(ctx context.Context) error {
	unloaded, err := j.Engine.UnloadIfIdle(ctx, j.MaxIdle)
	if err != nil {
		return fmt.Errorf("cron: idle unload: %w", err)
	}
	if unloaded {
		logger(j.Logger).Info("cron: unloaded idle embedding model", "max_idle", j.MaxIdle)
	}
	return nil
}

// Backfiller is the part of retrieval.Backfiller the backfill job needs.
type Backfiller interface {
	Run(ctx context.Context, all bool) (retrieval.BackfillReport, error)
}

// EmbeddingBackfillJob embeds stored facts and excerpts that have no
// vector yet.
type EmbeddingBackfillJob struct {
	Backfiller   Backfiller
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*EmbeddingBackfillJob)(nil)

// Name implements Job.
func (j *EmbeddingBackfillJob) Name() string { return "embedding_backfill" }

// Schedule implements Job.
func (j *EmbeddingBackfillJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run backfills missing vectors.
func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	report, err := j.Backfiller.Run(ctx, false)
	if err != nil {
		return fmt.Errorf("cron: backfill: %w", err)
	}
	if report.Facts > 0 || report.Excerpts > 0 {
		logger(j.Logger).Info("cron: backfilled embeddings", "facts", report.Facts, "excerpts", report.Excerpts)
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
