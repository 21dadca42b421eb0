package embedding_test

import (
	"math"
	"testing"

	"github.com/flemzord/confidant/internal/embedding"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b embedding.Vector
		want float64
	}{
		{"identical", embedding.Vector{1, 2, 3}, embedding.Vector{1, 2, 3}, 1},
		{"opposite", embedding.Vector{1, 0}, embedding.Vector{-1, 0}, -1},
		{"orthogonal", embedding.Vector{1, 0}, embedding.Vector{0, 1}, 0},
		{"length mismatch", embedding.Vector{1}, embedding.Vector{1, 2}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", embedding.Vector{0, 0}, embedding.Vector{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := embedding.CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
