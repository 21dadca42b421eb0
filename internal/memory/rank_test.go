package memory_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/memory"
)

func TestAgeDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		created time.Time
		want    int
	}{
		{now, 0},
		{now.Add(-23 * time.Hour), 0},
		{now.Add(-24 * time.Hour), 1},
		{now.Add(-200 * 24 * time.Hour), 200},
		{now.Add(time.Hour), 0},
	}
	for _, tt := range tests {
		if got := memory.AgeDays(tt.created, now); got != tt.want {
			t.Errorf("AgeDays(%v) = %d, want %d", now.Sub(tt.created), got, tt.want)
		}
	}
}

func TestRankFacts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	query := embedding.Vector{1, 0}
	daysAgo := func(d int) time.Time { return now.Add(-time.Duration(d) * 24 * time.Hour) }

	facts := []memory.Fact{
		{ID: "best-old", Embedding: embedding.Vector{1, 0}, CreatedAt: daysAgo(10)},
		{ID: "best-new", Embedding: embedding.Vector{2, 0}, CreatedAt: daysAgo(3)},
		{ID: "mid", Embedding: embedding.Vector{1, 1}, CreatedAt: daysAgo(30)},
		{ID: "too-young", Embedding: embedding.Vector{1, 0}, CreatedAt: daysAgo(1)},
		{ID: "no-vector", CreatedAt: daysAgo(40)},
		{ID: "wrong-dims", Embedding: embedding.Vector{1, 0, 0}, CreatedAt: daysAgo(40)},
		{ID: "worst", Embedding: embedding.Vector{-1, 0}, CreatedAt: daysAgo(40)},
	}

	got := memory.RankFacts(facts, query, 3, 2, now)
	gotIDs := make([]string, len(got))
	for i, f := range got {
		gotIDs[i] = f.ID
	}
	want := []string{"best-new", "best-old", "mid"}
	if fmt.Sprint(gotIDs) != fmt.Sprint(want) {
		t.Errorf("RankFacts() = %v, want %v", gotIDs, want)
	}

	if got := memory.RankFacts(facts, query, 0, 0, now); len(got) != 0 {
		t.Errorf("RankFacts(limit 0) = %d facts, want 0", len(got))
	}
}

func TestRankFactsTieBreaks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-5 * 24 * time.Hour)
	query := embedding.Vector{1, 0}

	facts := []memory.Fact{
		{ID: "c", Embedding: embedding.Vector{1, 0}, CreatedAt: created},
		{ID: "a", Embedding: embedding.Vector{1, 0}, CreatedAt: created},
		{ID: "newer", Embedding: embedding.Vector{1, 0}, CreatedAt: created.Add(time.Hour)},
		{ID: "b", Embedding: embedding.Vector{1, 0}, CreatedAt: created},
	}

	got := memory.RankFacts(facts, query, 10, 0, now)
	gotIDs := make([]string, len(got))
	for i, f := range got {
		gotIDs[i] = f.ID
	}
	want := []string{"newer", "a", "b", "c"}
	if fmt.Sprint(gotIDs) != fmt.Sprint(want) {
		t.Errorf("RankFacts() = %v, want %v", gotIDs, want)
	}
}

func TestRankExcerpts(t *testing.T) {
	t.Parallel()

	query := embedding.Vector{0, 1}
	excerpts := []memory.Excerpt{
		{ID: "b2", DocumentID: "b", Ordinal: 2, Embedding: embedding.Vector{0, 1}},
		{ID: "a1", DocumentID: "a", Ordinal: 1, Embedding: embedding.Vector{0, 1}},
		{ID: "off", DocumentID: "a", Ordinal: 0, Embedding: embedding.Vector{1, 0}},
		{ID: "bare", DocumentID: "a", Ordinal: 3},
	}

	got := memory.RankExcerpts(excerpts, query, 10)
	gotIDs := make([]string, len(got))
	for i, ex := range got {
		gotIDs[i] = ex.ID
	}
	want := []string{"a1", "b2", "off"}
	if fmt.Sprint(gotIDs) != fmt.Sprint(want) {
		t.Errorf("RankExcerpts() = %v, want %v", gotIDs, want)
	}
}
