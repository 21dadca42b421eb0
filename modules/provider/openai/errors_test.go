package openai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/confidant/internal/provider"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &goopenai.APIError{HTTPStatusCode: 401, Message: "bad key"}, errAuth},
		{"rate limit", &goopenai.APIError{HTTPStatusCode: 429}, errRateLimit},
		{"server", &goopenai.RequestError{HTTPStatusCode: 503, Err: errors.New("boom")}, errUnavailable},
		{"other", errors.New("weird"), provider.ErrGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapError(tt.err)
			if !errors.Is(got, provider.ErrGeneration) {
				t.Errorf("mapError() = %v, want ErrGeneration", got)
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorContextPassthrough(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("recv: %w", context.Canceled)
	got := mapError(err)
	if !errors.Is(got, context.Canceled) || errors.Is(got, provider.ErrGeneration) {
		t.Errorf("mapError(canceled) = %v, want plain context error", got)
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
}

func TestReasoningModelRequest(t *testing.T) {
	t.Parallel()

	p, err := New(Config{APIKey: "k", Temperature: provider.Float(0.5)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := p.buildChatRequest(provider.CompletionRequest{Model: "o3-mini", MaxTokens: 50})
	if req.MaxCompletionTokens != 50 || req.MaxTokens != 0 {
		t.Errorf("tokens = (%d, %d), want max_completion_tokens only", req.MaxCompletionTokens, req.MaxTokens)
	}
	if req.Temperature != 0 {
		t.Errorf("temperature = %v, want unset for reasoning models", req.Temperature)
	}
}
