// Package embeddingtest provides test doubles for the embedding package.
package embeddingtest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/flemzord/confidant/internal/embedding"
)

// Artifacts is an in-memory embedding.Artifacts.
type Artifacts struct {
	mu      sync.RWMutex
	present map[string]bool
}

// NewArtifacts marks the given model ids as downloaded.
func NewArtifacts(ids ...string) *Artifacts {
	a := &Artifacts{present: make(map[string]bool)}
	for _, id := range ids {
		a.present[id] = true
	}
	return a
}

// Set marks id as downloaded or not.
func (a *Artifacts) Set(id string, present bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.present[id] = present
}

// Exists implements embedding.Artifacts.
func (a *Artifacts) Exists(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.present[id]
}

// Path implements embedding.Artifacts.
func (a *Artifacts) Path(id string) string {
	return "/models/" + id
}

// Runtime is a fake embedding.Runtime. Its sessions fail loudly when used
// concurrently, when used after Close, or when an Embed overlaps a Load.
type Runtime struct {
	// Hook runs inside every session Embed call, while the session is marked busy.
	Hook func(text string)
	// LoadHook runs at the start of every Load.
	LoadHook func(spec embedding.ModelSpec)
	// LoadErr, when set, is returned by Load.
	LoadErr error

	active    atomic.Int32
	loads     atomic.Int32
	mu        sync.Mutex
	loaded    []string
	violation error
}

// Load implements embedding.Runtime.
func (r *Runtime) Load(_ context.Context, spec embedding.ModelSpec, _ string) (embedding.Session, error) {
	if r.LoadHook != nil {
		r.LoadHook(spec)
	}
	if r.active.Load() != 0 {
		r.fail(errors.New("load overlapped an inference"))
	}
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	r.loads.Add(1)
	r.mu.Lock()
	r.loaded = append(r.loaded, spec.ID)
	r.mu.Unlock()
	return &session{runtime: r, spec: spec}, nil
}

// Loads returns how many sessions were loaded.
func (r *Runtime) Loads() int { return int(r.loads.Load()) }

// Loaded returns the model ids in load order.
func (r *Runtime) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loaded...)
}

// Violation returns the first concurrency violation observed, if any.
func (r *Runtime) Violation() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violation
}

func (r *Runtime) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.violation == nil {
		r.violation = err
	}
}

type session struct {
	runtime *Runtime
	spec    embedding.ModelSpec
	closed  atomic.Bool
	busy    atomic.Bool
}

func (s *session) Dims() int     { return s.spec.Dims }
func (s *session) Healthy() bool { return !s.closed.Load() }

func (s *session) Close() error {
	if s.busy.Load() {
		s.runtime.fail(errors.New("close during inference"))
	}
	s.closed.Store(true)
	return nil
}

func (s *session) Embed(_ context.Context, text string) (embedding.Vector, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.runtime.fail(embedding.ErrSessionBusy)
		return nil, embedding.ErrSessionBusy
	}
	defer s.busy.Store(false)
	if s.runtime.active.Add(1) != 1 {
		s.runtime.fail(errors.New("two inferences in flight"))
	}
	defer s.runtime.active.Add(-1)

	if s.closed.Load() {
		s.runtime.fail(fmt.Errorf("embed on closed session %q", s.spec.ID))
		return nil, errors.New("session closed")
	}
	if s.runtime.Hook != nil {
		s.runtime.Hook(text)
	}
	return Deterministic(text, s.spec.Dims), nil
}

// Deterministic returns a stable non-zero vector for text.
func Deterministic(text string, dims int) embedding.Vector {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	v := make(embedding.Vector, dims)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000)/1000 + 0.001
	}
	return v
}

// Credentials is a map-backed embedding.Credentials.
type Credentials map[string]string

// Has implements embedding.Credentials.
func (c Credentials) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Get implements embedding.Credentials.
func (c Credentials) Get(name string) (string, bool) {
	v, ok := c[name]
	return v, ok
}

// Remote is a fake embedding.RemoteEmbedder that answers in reverse order.
type Remote struct {
	NeedsKey bool
	Dims     int
	Err      error

	mu      sync.Mutex
	Calls   int
	LastKey string
}

// RequiresCredential implements embedding.RemoteEmbedder.
func (r *Remote) RequiresCredential() bool { return r.NeedsKey }

// EmbedTexts implements embedding.RemoteEmbedder.
func (r *Remote) EmbedTexts(_ context.Context, apiKey, _ string, texts []string) ([]embedding.IndexedVector, error) {
	r.mu.Lock()
	r.Calls++
	r.LastKey = apiKey
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	dims := r.Dims
	if dims == 0 {
		dims = 8
	}
	out := make([]embedding.IndexedVector, 0, len(texts))
	for i := len(texts) - 1; i >= 0; i-- {
		out = append(out, embedding.IndexedVector{Index: i, Vector: Deterministic(texts[i], dims)})
	}
	return out, nil
}

// Interface guards.
var (
	_ embedding.Artifacts      = (*Artifacts)(nil)
	_ embedding.Runtime        = (*Runtime)(nil)
	_ embedding.Credentials    = Credentials(nil)
	_ embedding.RemoteEmbedder = (*Remote)(nil)
)
