package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/confidant/internal/embedding"
)

// EmbedTexts embeds texts with the given model in a single request. An
// empty model falls back to the configured embedding_model. Results carry
// the index reported by the API; the engine restores input order.
func (p *Provider) EmbedTexts(ctx context.Context, apiKey, model string, texts []string) ([]embedding.IndexedVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if model == "" {
		model = p.config.EmbeddingModel
	}
	if apiKey == "" {
		apiKey = p.config.APIKey
	}

	resp, err := p.client(apiKey).CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: goopenai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings: %w", mapError(err))
	}

	out := make([]embedding.IndexedVector, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, embedding.IndexedVector{
			Index:  d.Index,
			Vector: embedding.Vector(d.Embedding),
		})
	}
	p.logger.Debug("embedded texts", "model", model, "count", len(out))
	return out, nil
}
