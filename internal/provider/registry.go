package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry resolves providers by name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers, keyed by Name().
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stream resolves model.Provider and starts a streaming generation with
// req.Model defaulted to model.ID. Connection failures wrap ErrGeneration.
func (r *Registry) Stream(ctx context.Context, model ModelRef, req CompletionRequest) (<-chan StreamChunk, error) {
	p, err := r.Get(model.Provider)
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = model.ID
	}

	ch, err := p.Stream(ctx, req)
	if err != nil {
		return nil, wrapGeneration(err)
	}
	return ch, nil
}

// Generate streams a completion and collects it into a single string.
func (r *Registry) Generate(ctx context.Context, model ModelRef, req CompletionRequest) (string, error) {
	ch, err := r.Stream(ctx, model, req)
	if err != nil {
		return "", err
	}
	return Collect(ctx, ch)
}
