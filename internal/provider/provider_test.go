package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/provider/providertest"
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	r := provider.NewRegistry(&providertest.MockProvider{ProviderName: "openai"})

	if _, err := r.Get("nope"); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Fatalf("Get(nope) error = %v, want ErrUnknownProvider", err)
	}
	p, err := r.Get("openai")
	if err != nil {
		t.Fatalf("Get(openai): %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := provider.NewRegistry(
		&providertest.MockProvider{ProviderName: "openai"},
		&providertest.MockProvider{ProviderName: "gemini"},
	)

	names := r.Names()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "openai" {
		t.Fatalf("Names() = %v, want [gemini openai]", names)
	}
}

func TestRegistryStreamDefaultsModel(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{ProviderName: "openai", Response: "hi"}
	r := provider.NewRegistry(mock)

	model := provider.ModelRef{Provider: "openai", ID: "gpt-4o-mini", Class: provider.ClassRemote}
	got, err := r.Generate(context.Background(), model, provider.CompletionRequest{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hi" {
		t.Errorf("Generate() = %q, want %q", got, "hi")
	}
	if req := mock.LastRequest(); req.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want gpt-4o-mini", req.Model)
	}
}

func TestRegistryStreamConnectError(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		ProviderName: "openai",
		StreamFunc: func(context.Context, provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := provider.NewRegistry(mock)

	_, err := r.Stream(context.Background(), provider.ModelRef{Provider: "openai"}, provider.CompletionRequest{})
	if !errors.Is(err, provider.ErrGeneration) {
		t.Fatalf("Stream error = %v, want ErrGeneration", err)
	}
}

// ---------------------------------------------------------------------------
// Collect
// ---------------------------------------------------------------------------

func TestCollectJoinsChunks(t *testing.T) {
	t.Parallel()

	got, err := provider.Collect(context.Background(), providertest.Chunks("a", "b", "c"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got != "abc" {
		t.Errorf("Collect() = %q, want abc", got)
	}
}

func TestCollectMidStreamError(t *testing.T) {
	t.Parallel()

	cause := errors.New("reset by peer")
	got, err := provider.Collect(context.Background(), providertest.Failing(cause, "par"))
	if !errors.Is(err, provider.ErrGeneration) || !errors.Is(err, cause) {
		t.Fatalf("Collect error = %v, want ErrGeneration wrapping cause", err)
	}
	if got != "par" {
		t.Errorf("partial = %q, want par", got)
	}
}

func TestCollectCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan provider.StreamChunk)
	cancel()

	if _, err := provider.Collect(ctx, ch); !errors.Is(err, context.Canceled) {
		t.Fatalf("Collect error = %v, want context.Canceled", err)
	}
}

func TestModelRefIsRemote(t *testing.T) {
	t.Parallel()

	if (provider.ModelRef{Class: provider.ClassLocal}).IsRemote() {
		t.Error("local model reported as remote")
	}
	if !(provider.ModelRef{Class: provider.ClassRemote}).IsRemote() {
		t.Error("remote model reported as local")
	}
}
