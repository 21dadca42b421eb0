package cron_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/confidant/internal/cron"
	"github.com/flemzord/confidant/internal/cron/crontest"
	"github.com/flemzord/confidant/internal/retrieval"
)

func TestModelIdleJob(t *testing.T) {
	t.Parallel()

	u := &crontest.Unloader{Unloaded: true}
	j := &cron.ModelIdleJob{Engine: u, MaxIdle: 10 * time.Minute}

	if j.Name() != "model_idle_unload" || j.Schedule() != "*/5 * * * *" {
		t.Fatalf("Name/Schedule = %q/%q", j.Name(), j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls := u.Calls(); len(calls) != 1 || calls[0] != 10*time.Minute {
		t.Fatalf("UnloadIfIdle calls = %v", calls)
	}
}

func TestModelIdleJob_Error(t *testing.T) {
	t.Parallel()

	j := &cron.ModelIdleJob{Engine: &crontest.Unloader{Err: context.Canceled}, ScheduleExpr: "0 * * * *"}
	if err := j.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want wrapped context.Canceled", err)
	}
	if j.Schedule() != "0 * * * *" {
		t.Errorf("Schedule() = %q, want override", j.Schedule())
	}
}

func TestEmbeddingBackfillJob(t *testing.T) {
	t.Parallel()

	b := &crontest.Backfiller{Report: retrieval.BackfillReport{Facts: 2}}
	j := &cron.EmbeddingBackfillJob{Backfiller: b}

	if j.Name() != "embedding_backfill" || j.Schedule() != "*/15 * * * *" {
		t.Fatalf("Name/Schedule = %q/%q", j.Name(), j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls := b.Calls(); len(calls) != 1 || calls[0] {
		t.Fatalf("Backfiller calls = %v, want one missing-only run", calls)
	}

	b.Err = errors.New("store down")
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("Run() should surface backfill errors")
	}
}
