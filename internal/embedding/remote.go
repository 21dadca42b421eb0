package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/confidant/internal/provider"
)

// IndexedVector is one entry of a remote embedding response. Index refers
// to the position of the input text in the request.
type IndexedVector struct {
	Index  int
	Vector Vector
}

// RemoteEmbedder calls a provider's embedding endpoint. Responses are not
// required to preserve input order.
type RemoteEmbedder interface {
	EmbedTexts(ctx context.Context, apiKey, model string, texts []string) ([]IndexedVector, error)
	RequiresCredential() bool
}

// Credentials looks up provider API keys.
type Credentials interface {
	Has(name string) bool
	Get(name string) (string, bool)
}

// EmbedRemote embeds one text through a remote provider. It never touches
// the local sections.
func (e *Engine) EmbedRemote(ctx context.Context, providerName, model, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vecs, err := e.EmbedRemoteBatch(ctx, providerName, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedRemoteBatch embeds texts through a remote provider and returns the
// vectors in input order.
func (e *Engine) EmbedRemoteBatch(ctx context.Context, providerName, model string, texts []string) (_ []Vector, err error) {
	if len(texts) == 0 {
		return []Vector{}, nil
	}

	ctx, span := e.tracer.Start(ctx, "embedding.EmbedRemoteBatch")
	span.SetAttributes(
		attribute.String("provider", providerName),
		attribute.String("model", model),
		attribute.Int("texts", len(texts)),
	)
	start := time.Now()
	defer func() {
		e.metrics.Inferences.WithLabelValues("remote", result(err)).Inc()
		e.metrics.Duration.WithLabelValues("remote_embed").Observe(time.Since(start).Seconds())
		endSpan(span, err)
	}()

	remote, ok := e.remotes[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, providerName)
	}

	var apiKey string
	if remote.RequiresCredential() {
		key, found := "", false
		if e.creds != nil && e.creds.Has(providerName) {
			key, found = e.creds.Get(providerName)
		}
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", provider.ErrMissingCredential, providerName)
		}
		apiKey = key
	}

	resp, err := remote.EmbedTexts(ctx, apiKey, model, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding: remote %s: %w", providerName, err)
	}
	return zipByIndex(resp, len(texts))
}

// zipByIndex re-sorts a provider response by index and checks it covers
// every input exactly once.
func zipByIndex(resp []IndexedVector, n int) ([]Vector, error) {
	if len(resp) != n {
		return nil, fmt.Errorf("embedding: remote returned %d vectors for %d inputs", len(resp), n)
	}

	sorted := make([]IndexedVector, len(resp))
	copy(sorted, resp)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	out := make([]Vector, n)
	for i, iv := range sorted {
		if iv.Index != i {
			return nil, fmt.Errorf("embedding: remote response index %d out of range or duplicated", iv.Index)
		}
		out[i] = iv.Vector
	}
	return out, nil
}

// Remote returns an Embedder bound to a remote provider and model.
func (e *Engine) Remote(providerName, model string) Embedder {
	return &remoteBinding{engine: e, provider: providerName, model: model}
}

type remoteBinding struct {
	engine   *Engine
	provider string
	model    string
}

func (r *remoteBinding) Embed(ctx context.Context, text string) (Vector, error) {
	return r.engine.EmbedRemote(ctx, r.provider, r.model, text)
}

func (r *remoteBinding) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	return r.engine.EmbedRemoteBatch(ctx, r.provider, r.model, texts)
}

// Interface guard.
var _ Embedder = (*remoteBinding)(nil)
