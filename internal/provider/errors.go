package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates no provider is registered under the requested name.
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrMissingCredential indicates the provider needs an API key and none is configured.
	ErrMissingCredential = errors.New("provider: missing credential")

	// ErrGeneration indicates the generation call failed, either while
	// connecting or mid-stream. It is surfaced to the caller and never
	// retried internally.
	ErrGeneration = errors.New("provider: generation failed")
)
