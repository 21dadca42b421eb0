// Package openai implements provider.Provider and embedding.RemoteEmbedder
// on top of the OpenAI chat completion and embedding APIs. Any endpoint
// speaking the same protocol (Ollama, OpenRouter, vLLM) works by setting
// base_url.
package openai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/provider"
)

// Compile-time interface guards.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ embedding.RemoteEmbedder = (*Provider)(nil)
)

// Provider streams chat completions and computes embeddings through an
// OpenAI-compatible HTTP API.
type Provider struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// New validates cfg and returns a ready provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.parsedTimeout()

	return &Provider{
		config: cfg,
		http:   &http.Client{Transport: transport},
		logger: logger.With("component", "provider."+cfg.Name),
	}, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.config.Name
}

// RequiresCredential reports whether calls need an API key.
func (p *Provider) RequiresCredential() bool {
	return !p.config.NoAuth
}

// client builds an API client bound to apiKey. Clients are cheap and keys
// may differ per call for embeddings.
func (p *Provider) client(apiKey string) *goopenai.Client {
	cc := goopenai.DefaultConfig(apiKey)
	cc.BaseURL = strings.TrimRight(p.config.BaseURL, "/")
	cc.HTTPClient = p.http
	return goopenai.NewClientWithConfig(cc)
}

// Stream sends a chat completion request and relays the response deltas.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	if p.RequiresCredential() && p.config.APIKey == "" {
		return nil, provider.ErrMissingCredential
	}

	stream, err := p.client(p.config.APIKey).CreateChatCompletionStream(ctx, p.buildChatRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	ch := make(chan provider.StreamChunk, 16)
	go p.relay(ctx, stream, ch)
	return ch, nil
}

func (p *Provider) relay(ctx context.Context, stream *goopenai.ChatCompletionStream, ch chan<- provider.StreamChunk) {
	defer close(ch)
	defer func() { _ = stream.Close() }()

	// Recv blocks on the response body; closing the stream unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			send(ctx, ch, provider.StreamChunk{Err: mapError(err)})
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		chunk := provider.StreamChunk{
			Content:      choice.Delta.Content,
			FinishReason: mapFinishReason(choice.FinishReason),
		}
		if chunk.Content == "" && chunk.FinishReason == "" {
			continue
		}
		if !send(ctx, ch, chunk) {
			return
		}
	}
}

func send(ctx context.Context, ch chan<- provider.StreamChunk, chunk provider.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildChatRequest merges the request with config defaults. Request
// values take precedence over config.
func (p *Provider) buildChatRequest(req provider.CompletionRequest) goopenai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    mapRole(m.Role),
			Content: m.Content,
		})
	}

	out := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if reasoningModel(model) {
		out.MaxCompletionTokens = maxTokens
		return out
	}
	out.MaxTokens = maxTokens

	if t := pick(req.Temperature, p.config.Temperature); t != nil {
		out.Temperature = float32(*t)
	}
	if tp := pick(req.TopP, p.config.TopP); tp != nil {
		out.TopP = float32(*tp)
	}
	return out
}

func pick(primary, fallback *float64) *float64 {
	if primary != nil {
		return primary
	}
	return fallback
}

func mapRole(r provider.MessageRole) string {
	switch r {
	case provider.MessageRoleSystem:
		return goopenai.ChatMessageRoleSystem
	case provider.MessageRoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}

func mapFinishReason(r goopenai.FinishReason) provider.FinishReason {
	switch r {
	case goopenai.FinishReasonStop:
		return provider.FinishReasonStop
	case goopenai.FinishReasonLength:
		return provider.FinishReasonLength
	case goopenai.FinishReasonContentFilter:
		return provider.FinishReasonFiltering
	default:
		return ""
	}
}
