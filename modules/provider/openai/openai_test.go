package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/modules/provider/openai"
)

func newProvider(t *testing.T, srv *httptest.Server, cfg openai.Config) *openai.Provider {
	t.Helper()
	cfg.BaseURL = srv.URL
	p, err := openai.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func writeSSE(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		fmt.Fprintf(w, "data: %s\n\n", e)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func chunk(content, finish string) string {
	choice := map[string]any{"index": 0, "delta": map[string]any{"content": content}}
	if finish != "" {
		choice["finish_reason"] = finish
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []any{choice},
	})
	return string(b)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	p, err := openai.New(openai.Config{APIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
	if !p.RequiresCredential() {
		t.Error("RequiresCredential() = false, want true")
	}
}

func TestNewInvalidTimeout(t *testing.T) {
	t.Parallel()

	if _, err := openai.New(openai.Config{Timeout: "soon"}, nil); err == nil {
		t.Fatal("New() with invalid timeout should fail")
	}
}

func TestNoAuthProvider(t *testing.T) {
	t.Parallel()

	p, err := openai.New(openai.Config{Name: "ollama", NoAuth: true}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "ollama" || p.RequiresCredential() {
		t.Errorf("Name()=%q RequiresCredential()=%v, want ollama/false", p.Name(), p.RequiresCredential())
	}
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestStreamSuccess(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		writeSSE(w, chunk("Hel", ""), chunk("lo", ""), chunk("", "stop"))
	}))
	defer srv.Close()

	p := newProvider(t, srv, openai.Config{APIKey: "sk-test", Model: "gpt-4o-mini"})

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		System:      "be brief",
		Messages:    []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
		Temperature: provider.Float(0.25),
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var text string
	var finish provider.FinishReason
	for c := range ch {
		if c.Err != nil {
			t.Fatalf("chunk error: %v", c.Err)
		}
		text += c.Content
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
	}
	if text != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
	if finish != provider.FinishReasonStop {
		t.Errorf("finish = %q, want stop", finish)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want config default gpt-4o-mini", got["model"])
	}
	if got["temperature"] != 0.25 {
		t.Errorf("temperature = %v, want 0.25", got["temperature"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2 (system + user)", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("first message = %v", first)
	}
}

func TestStreamRequestOverridesConfig(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		writeSSE(w, chunk("ok", "stop"))
	}))
	defer srv.Close()

	p := newProvider(t, srv, openai.Config{APIKey: "k", Model: "gpt-4o", MaxTokens: 100})

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		Model:     "gpt-4o-mini",
		MaxTokens: 7,
		Messages:  []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if _, err := provider.Collect(context.Background(), ch); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", got["model"])
	}
	if got["max_tokens"] != float64(7) {
		t.Errorf("max_tokens = %v, want 7", got["max_tokens"])
	}
}

func TestStreamMissingKey(t *testing.T) {
	t.Parallel()

	p, err := openai.New(openai.Config{Model: "gpt-4o-mini"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Stream(context.Background(), provider.CompletionRequest{}); !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("Stream() error = %v, want ErrMissingCredential", err)
	}
}

func TestStreamHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv, openai.Config{APIKey: "wrong", Model: "gpt-4o-mini"})

	_, err := p.Stream(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "x"}},
	})
	if !errors.Is(err, provider.ErrGeneration) {
		t.Fatalf("Stream() error = %v, want ErrGeneration", err)
	}
}

func TestStreamCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", chunk("partial", ""))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newProvider(t, srv, openai.Config{APIKey: "k", Model: "gpt-4o-mini"})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Stream(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	first := <-ch
	if first.Content != "partial" {
		t.Fatalf("first chunk = %+v, want partial", first)
	}
	cancel()

	// The channel must close once the context is cancelled.
	for range ch {
	}
}

// ---------------------------------------------------------------------------
// Embeddings
// ---------------------------------------------------------------------------

func TestEmbedTexts(t *testing.T) {
	t.Parallel()

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		w.Header().Set("Content-Type", "application/json")
		// Deliberately out of order.
		fmt.Fprint(w, `{"object":"list","model":"m","data":[`+
			`{"object":"embedding","index":1,"embedding":[0,1]},`+
			`{"object":"embedding","index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv, openai.Config{EmbeddingModel: "text-embedding-3-small"})

	got, err := p.EmbedTexts(context.Background(), "sk-embed", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if req.Model != "text-embedding-3-small" {
		t.Errorf("model = %q, want config default", req.Model)
	}
	if len(req.Input) != 2 || req.Input[0] != "a" {
		t.Errorf("input = %v", req.Input)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Index != 1 || got[0].Vector[1] != 1 {
		t.Errorf("got[0] = %+v, want index 1 as returned", got[0])
	}
}

func TestEmbedTextsEmpty(t *testing.T) {
	t.Parallel()

	p, err := openai.New(openai.Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.EmbedTexts(context.Background(), "k", "m", nil)
	if err != nil || got != nil {
		t.Fatalf("EmbedTexts(nil) = %v, %v; want nil, nil", got, err)
	}
}
