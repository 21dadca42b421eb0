// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/confidant/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set StreamFunc to control behavior; when it is nil, Stream replies with
// Response as a single chunk. All methods are safe for concurrent use.
type MockProvider struct {
	ProviderName string
	Response     string
	StreamFunc   func(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error)

	mu          sync.Mutex
	StreamCalls int
	Requests    []provider.CompletionRequest
}

// Stream delegates to StreamFunc and records the request.
func (m *MockProvider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return Chunks(m.Response), nil
}

// Name returns ProviderName, defaulting to "mock".
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Calls returns the number of Stream calls so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StreamCalls
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockProvider) LastRequest() provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// Chunks returns a closed, buffered channel carrying each part as one chunk
// followed by a stop marker.
func Chunks(parts ...string) <-chan provider.StreamChunk {
	ch := make(chan provider.StreamChunk, len(parts)+1)
	for _, p := range parts {
		ch <- provider.StreamChunk{Content: p}
	}
	ch <- provider.StreamChunk{FinishReason: provider.FinishReasonStop}
	close(ch)
	return ch
}

// Failing returns a closed channel that yields parts and then err.
func Failing(err error, parts ...string) <-chan provider.StreamChunk {
	ch := make(chan provider.StreamChunk, len(parts)+1)
	for _, p := range parts {
		ch <- provider.StreamChunk{Content: p}
	}
	ch <- provider.StreamChunk{Err: err}
	close(ch)
	return ch
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
