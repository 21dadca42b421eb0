package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
)

func TestInMemoryStore_FactLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewInMemoryStore().WithClock(func() time.Time { return now })

	facts := []memory.Fact{
		{ID: "1", Content: "likes tea", CreatedAt: now.Add(-72 * time.Hour), Embedding: embedding.Vector{1, 0}},
		{ID: "2", Content: "has a cat", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "3", Content: "works nights", CreatedAt: now.Add(-96 * time.Hour), Embedding: embedding.Vector{0, 1}},
	}
	for _, f := range facts {
		if err := store.IndexFact(ctx, f); err != nil {
			t.Fatalf("IndexFact(%q): %v", f.ID, err)
		}
	}
	if got := store.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	missing, err := store.ListFacts(ctx, memory.ListOptions{MissingEmbedding: true})
	if err != nil {
		t.Fatalf("ListFacts: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != "2" {
		t.Fatalf("missing = %+v, want only fact 2", missing)
	}

	all, _ := store.ListFacts(ctx, memory.ListOptions{})
	if len(all) != 3 || all[0].ID != "3" || all[2].ID != "2" {
		t.Errorf("ListFacts order = %v, want oldest first", all)
	}

	if err := store.SetFactEmbedding(ctx, "2", embedding.Vector{1, 0.1}); err != nil {
		t.Fatalf("SetFactEmbedding: %v", err)
	}
	got, err := store.SimilaritySearchFacts(ctx, embedding.Vector{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("SimilaritySearchFacts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("SimilaritySearchFacts() = %+v", got)
	}

	if err := store.DeleteFact(ctx, "1"); err != nil {
		t.Fatalf("DeleteFact: %v", err)
	}
	if err := store.DeleteFact(ctx, "1"); !errors.Is(err, memory.ErrFactNotFound) {
		t.Errorf("second DeleteFact = %v, want ErrFactNotFound", err)
	}
	if err := store.SetFactEmbedding(ctx, "1", nil); !errors.Is(err, memory.ErrFactNotFound) {
		t.Errorf("SetFactEmbedding(deleted) = %v, want ErrFactNotFound", err)
	}
}

func TestInMemoryStore_Excerpts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	for i := range 4 {
		ex := memory.Excerpt{ID: fmt.Sprint("ex", i), DocumentID: "doc", Ordinal: i, Text: fmt.Sprint("chunk ", i)}
		if i%2 == 0 {
			ex.Embedding = embedding.Vector{float32(i), 1}
		}
		if err := store.IndexExcerpt(ctx, ex); err != nil {
			t.Fatalf("IndexExcerpt: %v", err)
		}
	}

	missing, _ := store.ListExcerpts(ctx, memory.ListOptions{MissingEmbedding: true})
	if len(missing) != 2 || missing[0].Ordinal != 1 || missing[1].Ordinal != 3 {
		t.Fatalf("missing excerpts = %+v", missing)
	}
	if err := store.SetExcerptEmbedding(ctx, "nope", nil); !errors.Is(err, memory.ErrExcerptNotFound) {
		t.Errorf("SetExcerptEmbedding(nope) = %v, want ErrExcerptNotFound", err)
	}

	got, err := store.SimilaritySearchExcerpts(ctx, embedding.Vector{0, 1}, 1)
	if err != nil {
		t.Fatalf("SimilaritySearchExcerpts: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ex0" {
		t.Errorf("SimilaritySearchExcerpts() = %+v, want ex0", got)
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.IndexFact(ctx, memory.Fact{ID: fmt.Sprint(i), Embedding: embedding.Vector{1, float32(i)}})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.SimilaritySearchFacts(ctx, embedding.Vector{1, 0}, 5, 0)
		}()
	}
	wg.Wait()

	if got := store.Len(); got != 50 {
		t.Errorf("Len() = %d, want 50", got)
	}
}

func TestInMemoryHistoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryHistoryStore()
	for _, tr := range conversation("c", 4, true) {
		if err := store.AppendTurn(ctx, tr); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	if got := store.Len("c"); got != 9 {
		t.Fatalf("Len() = %d, want 9", got)
	}
	pairs, err := store.FetchLastPairs(ctx, "c", 2)
	if err != nil {
		t.Fatalf("FetchLastPairs: %v", err)
	}
	if len(pairs) != 4 || pairs[0].Role != provider.MessageRoleUser || pairs[3].ID != "c-7" {
		t.Errorf("FetchLastPairs() = %v", ids(pairs))
	}

	if err := store.Purge(ctx, "c"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if turns, _ := store.Turns(ctx, "c"); len(turns) != 0 {
		t.Errorf("Turns after purge = %d, want 0", len(turns))
	}
}
