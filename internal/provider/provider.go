// Package provider defines the streaming generation contract shared by the
// focus extractor and the caller's final response generation, together
// with a name-keyed registry of concrete providers.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (e.g. modules/provider/openai).
type Provider interface {
	// Stream sends a completion request and returns a channel of chunks.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamChunk.Err. The channel is closed when the
	// response ends or ctx is cancelled; cancelling ctx releases the
	// underlying connection.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the provider identifier used for credential lookup
	// (e.g. "openai", "gemini").
	Name() string
}
