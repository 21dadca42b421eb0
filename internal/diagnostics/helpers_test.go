package diagnostics_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/diagnostics"
	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/security/securitytest"
)

// fakeEngine records lifecycle calls and reports a fixed catalog.
type fakeEngine struct {
	mu      sync.Mutex
	model   string
	loadErr error
}

func (e *fakeEngine) LoadModel(_ context.Context, id string) error {
	if e.loadErr != nil {
		return e.loadErr
	}
	if id != "hash-mini-384" {
		return embedding.ErrUnknownModel
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = id
	return nil
}

func (e *fakeEngine) UnloadModel(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = ""
	return nil
}

func (e *fakeEngine) Status() embedding.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := embedding.Status{
		State:   embedding.State{Phase: embedding.PhaseUnloaded},
		Catalog: []embedding.ModelStatus{{ID: "hash-mini-384", Dims: 384, Downloaded: true}},
		Remotes: []string{},
	}
	if e.model != "" {
		st.State = embedding.State{Phase: embedding.PhaseLoaded, Model: e.model}
		st.Dims = 384
	}
	return st
}

// fakeAssembler echoes the request into the result.
type fakeAssembler struct {
	mu   sync.Mutex
	last ctxengine.AssemblyRequest
	err  error
}

func (a *fakeAssembler) Assemble(_ context.Context, req ctxengine.AssemblyRequest) (ctxengine.AssemblyResult, error) {
	a.mu.Lock()
	a.last = req
	a.mu.Unlock()
	if a.err != nil {
		return ctxengine.AssemblyResult{}, a.err
	}
	return ctxengine.AssemblyResult{
		RunID:       "run-1",
		FullContext: req.BaseContext,
		Parts:       []ctxengine.Part{{Kind: ctxengine.PartBase, Text: req.BaseContext, Tokens: 1}},
		Tokens:      1,
	}, nil
}

func (a *fakeAssembler) lastRequest() ctxengine.AssemblyRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

type fakeStore struct{ err error }

func (s fakeStore) Ping(context.Context) error { return s.err }

var errStoreDown = errors.New("database is locked")

// newTestServer builds a server with fakes and a private registry.
func newTestServer(t *testing.T, cfg diagnostics.Config, mutate func(*diagnostics.Deps)) (*diagnostics.Server, *fakeEngine, *fakeAssembler) {
	t.Helper()

	eng := &fakeEngine{}
	asm := &fakeAssembler{}
	reg := prometheus.NewRegistry()
	deps := diagnostics.Deps{
		Engine:     eng,
		Assembler:  asm,
		Gatherer:   reg,
		Registerer: reg,
		Redactor:   securitytest.NewTestRedactor(),
		Version:    "test",
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := diagnostics.New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, eng, asm
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
