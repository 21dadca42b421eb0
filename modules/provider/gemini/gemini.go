// Package gemini implements provider.Provider and embedding.RemoteEmbedder
// on the Google Gemini API through google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/provider"
)

// Name is the provider name used for registry and credential lookup.
const Name = "gemini"

// Compile-time interface guards.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ embedding.RemoteEmbedder = (*Provider)(nil)
)

// Provider talks to the Gemini API.
type Provider struct {
	config Config
	logger *slog.Logger
}

// New validates cfg and returns a provider. No network call is made.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{config: cfg, logger: logger.With("component", "provider.gemini")}, nil
}

// Name returns "gemini".
func (p *Provider) Name() string { return Name }

// RequiresCredential always reports true: the Gemini API needs a key.
func (p *Provider) RequiresCredential() bool { return true }

func (p *Provider) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, provider.ErrMissingCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return client, nil
}

// Stream sends a generation request and relays the streamed text. The
// first response is pulled before returning so connection failures
// surface as the returned error.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	client, err := p.client(ctx, p.config.APIKey)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	contents, cfg := p.buildRequest(req)

	next, stop := iter.Pull2(client.Models.GenerateContentStream(ctx, model, contents, cfg))
	first, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, mapError(ctx, err)
	}

	ch := make(chan provider.StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stop()

		resp := first
		for ok {
			if err != nil {
				send(ctx, ch, provider.StreamChunk{Err: mapError(ctx, err)})
				return
			}
			if c, emit := toChunk(resp); emit && !send(ctx, ch, c) {
				return
			}
			resp, err, ok = next()
		}
	}()
	return ch, nil
}

func send(ctx context.Context, ch chan<- provider.StreamChunk, chunk provider.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func toChunk(resp *genai.GenerateContentResponse) (provider.StreamChunk, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return provider.StreamChunk{}, false
	}
	c := provider.StreamChunk{
		Content:      resp.Text(),
		FinishReason: mapFinishReason(resp.Candidates[0].FinishReason),
	}
	return c, c.Content != "" || c.FinishReason != ""
}

// buildRequest converts the request to Gemini contents. System messages
// found in the message list join the system instruction; assistant turns
// map to the model role.
func (p *Provider) buildRequest(req provider.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			system = append(system, m.Content)
		case provider.MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if t := pick(req.Temperature, p.config.Temperature); t != nil {
		cfg.Temperature = genai.Ptr(float32(*t))
	}
	if tp := pick(req.TopP, p.config.TopP); tp != nil {
		cfg.TopP = genai.Ptr(float32(*tp))
	}
	return contents, cfg
}

func pick(primary, fallback *float64) *float64 {
	if primary != nil {
		return primary
	}
	return fallback
}

// EmbedTexts embeds texts in one batch request. The API answers in input
// order, so indexes are positional.
func (p *Provider) EmbedTexts(ctx context.Context, apiKey, model string, texts []string) ([]embedding.IndexedVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if model == "" {
		model = p.config.EmbeddingModel
	}

	client, err := p.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	timeout := p.config.parsedTimeout()
	resp, err := client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		TaskType:    p.config.TaskType,
		HTTPOptions: &genai.HTTPOptions{Timeout: &timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: embeddings: %w", mapError(ctx, err))
	}

	out := make([]embedding.IndexedVector, 0, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			continue
		}
		out = append(out, embedding.IndexedVector{Index: i, Vector: embedding.Vector(e.Values)})
	}
	p.logger.Debug("embedded texts", "model", model, "count", len(out))
	return out, nil
}

func mapFinishReason(r genai.FinishReason) provider.FinishReason {
	switch r {
	case genai.FinishReasonStop:
		return provider.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return provider.FinishReasonLength
	case genai.FinishReasonSafety:
		return provider.FinishReasonFiltering
	default:
		return ""
	}
}

// mapError wraps API failures with provider.ErrGeneration. Context errors
// pass through unchanged.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini: HTTP %d %s: %s", provider.ErrGeneration, apiErr.Code, apiErr.Status, apiErr.Message)
	}
	return fmt.Errorf("%w: gemini: %w", provider.ErrGeneration, err)
}
