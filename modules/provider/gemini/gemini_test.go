package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/modules/provider/gemini"
)

func newProvider(t *testing.T, srv *httptest.Server, key string) *gemini.Provider {
	t.Helper()
	p, err := gemini.New(gemini.Config{APIKey: key, BaseURL: srv.URL, Model: "gemini-test"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func candidate(text, finish string) string {
	c := map[string]any{
		"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
	}
	if finish != "" {
		c["finishReason"] = finish
	}
	b, _ := json.Marshal(map[string]any{"candidates": []any{c}})
	return string(b)
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestStreamSuccess(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", candidate("Hel", ""))
		fmt.Fprintf(w, "data: %s\n\n", candidate("lo", "STOP"))
	}))
	defer srv.Close()

	p := newProvider(t, srv, "g-key")
	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		System: "be brief",
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: "hi"},
			{Role: provider.MessageRoleAssistant, Content: "hello"},
			{Role: provider.MessageRoleUser, Content: "again"},
		},
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

	contents, _ := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(contents))
	}
	second, _ := contents[1].(map[string]any)
	if second["role"] != "model" {
		t.Errorf("assistant role = %v, want model", second["role"])
	}
	if body["systemInstruction"] == nil {
		t.Error("systemInstruction missing from request")
	}
}

func TestStreamConnectError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv, "bad")
	_, err := p.Stream(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "x"}},
	})
	if !errors.Is(err, provider.ErrGeneration) {
		t.Fatalf("Stream() error = %v, want ErrGeneration", err)
	}
}

func TestStreamMissingKey(t *testing.T) {
	t.Parallel()

	p, err := gemini.New(gemini.Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Stream(context.Background(), provider.CompletionRequest{}); !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("Stream() error = %v, want ErrMissingCredential", err)
	}
}

// ---------------------------------------------------------------------------
// Embeddings
// ---------------------------------------------------------------------------

func TestEmbedTexts(t *testing.T) {
	t.Parallel()

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv, "")
	got, err := p.EmbedTexts(context.Background(), "per-call-key", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if gotKey != "per-call-key" {
		t.Errorf("api key header = %q, want per-call-key", gotKey)
	}
	if len(got) != 2 || got[1].Index != 1 || got[1].Vector[1] != 1 {
		t.Fatalf("EmbedTexts() = %+v", got)
	}
}

func TestEmbedTextsMissingKey(t *testing.T) {
	t.Parallel()

	p, err := gemini.New(gemini.Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.EmbedTexts(context.Background(), "", "", []string{"a"}); !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("EmbedTexts() error = %v, want ErrMissingCredential", err)
	}
	if !p.RequiresCredential() || p.Name() != gemini.Name {
		t.Error("gemini must require a credential and be named gemini")
	}
}
