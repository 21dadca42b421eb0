package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Phase is the lifecycle phase of the local model.
type Phase string

// Phase values.
const (
	PhaseUnloaded  Phase = "unloaded"
	PhaseLoading   Phase = "loading"
	PhaseLoaded    Phase = "loaded"
	PhaseUnloading Phase = "unloading"
)

// State is a snapshot of the engine. Model is the target model while
// Loading and the current model while Loaded or Unloading.
type State struct {
	Phase Phase  `json:"phase"`
	Model string `json:"model,omitempty"`
}

// ModelStatus reports whether a catalog model is downloaded.
type ModelStatus struct {
	ID         string `json:"id"`
	Dims       int    `json:"dims"`
	Downloaded bool   `json:"downloaded"`
}

// Status is the diagnostic view of the engine.
type Status struct {
	State    State         `json:"state"`
	Dims     int           `json:"dims,omitempty"`
	LastUsed time.Time     `json:"last_used,omitzero"`
	Catalog  []ModelStatus `json:"catalog"`
	Remotes  []string      `json:"remotes"`
}

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	Catalog     Catalog
	Artifacts   Artifacts
	Runtime     Runtime
	Remotes     map[string]RemoteEmbedder
	Credentials Credentials
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
	Tracer      trace.Tracer
	Now         func() time.Time
}

// Engine serializes all access to a single local model session and
// delegates remote embedding to providers.
//
// The lifecycle section serializes LoadModel/UnloadModel. The inference
// section serializes Embed/EmbedBatch and is also held by lifecycle
// operations while the session is swapped. Lock order is lifecycle then
// inference. Both sections are acquired with the caller's context and
// released on return.
type Engine struct {
	catalog   Catalog
	artifacts Artifacts
	runtime   Runtime
	remotes   map[string]RemoteEmbedder
	creds     Credentials
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	now       func() time.Time

	lifecycle *semaphore.Weighted
	inference *semaphore.Weighted

	// mu guards the fields below for lock-free readers (IsLoaded, State).
	// Writers also hold the inference section.
	mu       sync.RWMutex
	state    State
	session  Session
	lastUsed time.Time
}

// NewEngine creates an engine with nothing loaded.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Runtime == nil {
		cfg.Runtime = HashRuntime{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/flemzord/confidant/internal/embedding")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	remotes := make(map[string]RemoteEmbedder, len(cfg.Remotes))
	for name, r := range cfg.Remotes {
		remotes[name] = r
	}

	return &Engine{
		catalog:   cfg.Catalog,
		artifacts: cfg.Artifacts,
		runtime:   cfg.Runtime,
		remotes:   remotes,
		creds:     cfg.Credentials,
		logger:    cfg.Logger.With("component", "embedding"),
		metrics:   NewMetrics(cfg.Registerer),
		tracer:    cfg.Tracer,
		now:       cfg.Now,
		lifecycle: semaphore.NewWeighted(1),
		inference: semaphore.NewWeighted(1),
		state:     State{Phase: PhaseUnloaded},
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// LoadModel loads the catalog model id, unloading any different model
// first. Loading the model that is already loaded and healthy is a no-op.
func (e *Engine) LoadModel(ctx context.Context, id string) (err error) {
	ctx, span := e.tracer.Start(ctx, "embedding.LoadModel", trace.WithAttributes(attribute.String("model", id)))
	defer func() { endSpan(span, err) }()

	if err := e.lifecycle.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.lifecycle.Release(1)

	spec, err := e.catalog.Lookup(id)
	if err != nil {
		return err
	}
	if e.loadedAndHealthy(id) {
		return nil
	}
	if !e.artifactExists(id) {
		return fmt.Errorf("%w: %q", ErrModelFileMissing, id)
	}

	if err := e.inference.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.inference.Release(1)

	// An inference may have auto-loaded id while we waited.
	if e.loadedAndHealthy(id) {
		return nil
	}
	_, err = e.swapLocked(ctx, spec, "load")
	return err
}

// UnloadModel releases the loaded model, if any.
func (e *Engine) UnloadModel(ctx context.Context) error {
	if err := e.lifecycle.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.lifecycle.Release(1)

	if err := e.inference.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.inference.Release(1)

	e.unloadLocked()
	return nil
}

// UnloadIfIdle unloads the model when it has not served an inference for
// maxIdle. It reports whether a model was unloaded.
func (e *Engine) UnloadIfIdle(ctx context.Context, maxIdle time.Duration) (bool, error) {
	if err := e.lifecycle.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer e.lifecycle.Release(1)

	if err := e.inference.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer e.inference.Release(1)

	e.mu.RLock()
	loaded := e.session != nil
	idle := e.now().Sub(e.lastUsed)
	e.mu.RUnlock()

	if !loaded || idle < maxIdle {
		return false, nil
	}
	e.logger.Info("unloading idle model", "idle", idle.Round(time.Second))
	e.unloadLocked()
	return true, nil
}

// swapLocked replaces the current session with spec. The caller holds the
// inference section.
func (e *Engine) swapLocked(ctx context.Context, spec ModelSpec, op string) (sess Session, err error) {
	start := time.Now()
	defer func() {
		e.metrics.Loads.WithLabelValues(op, result(err)).Inc()
		e.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	e.unloadLocked()
	e.setState(State{Phase: PhaseLoading, Model: spec.ID}, nil)

	path := ""
	if e.artifacts != nil {
		path = e.artifacts.Path(spec.ID)
	}
	sess, err = e.runtime.Load(ctx, spec, path)
	if err != nil {
		e.setState(State{Phase: PhaseUnloaded}, nil)
		e.logger.Error("model load failed", "model", spec.ID, "error", err)
		return nil, fmt.Errorf("embedding: loading %q: %w", spec.ID, err)
	}

	e.setState(State{Phase: PhaseLoaded, Model: spec.ID}, sess)
	e.metrics.Loaded.Set(1)
	e.logger.Info("model loaded", "model", spec.ID, "dims", sess.Dims(), "op", op)
	return sess, nil
}

// unloadLocked closes the current session. The caller holds the inference section.
func (e *Engine) unloadLocked() {
	e.mu.RLock()
	sess, model := e.session, e.state.Model
	e.mu.RUnlock()
	if sess == nil {
		return
	}

	e.setState(State{Phase: PhaseUnloading, Model: model}, sess)
	if err := sess.Close(); err != nil {
		e.logger.Warn("closing model session", "model", model, "error", err)
	}
	e.setState(State{Phase: PhaseUnloaded}, nil)
	e.metrics.Loaded.Set(0)
	e.metrics.Loads.WithLabelValues("unload", "ok").Inc()
	e.logger.Info("model unloaded", "model", model)
}

// ensureLoadedLocked returns the current session, auto-loading the first
// downloaded catalog model when none is loaded. The caller holds the
// inference section, so concurrent callers never trigger redundant loads.
func (e *Engine) ensureLoadedLocked(ctx context.Context) (Session, error) {
	e.mu.RLock()
	sess := e.session
	e.mu.RUnlock()
	if sess != nil && sess.Healthy() {
		return sess, nil
	}

	for _, spec := range e.catalog {
		if !e.artifactExists(spec.ID) {
			continue
		}
		return e.swapLocked(ctx, spec, "autoload")
	}
	return nil, ErrNoModelAvailable
}

// ---------------------------------------------------------------------------
// Inference
// ---------------------------------------------------------------------------

// Embed embeds a single non-blank text with the local model.
func (e *Engine) Embed(ctx context.Context, text string) (_ Vector, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ctx, span := e.tracer.Start(ctx, "embedding.Embed")
	start := time.Now()
	defer func() {
		e.metrics.Inferences.WithLabelValues("local", result(err)).Inc()
		e.metrics.Duration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
		endSpan(span, err)
	}()

	if err := e.inference.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.inference.Release(1)

	sess, err := e.ensureLoadedLocked(ctx)
	if err != nil {
		return nil, err
	}
	v, err := sess.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: embed: %w", err)
	}
	e.touch()
	return v, nil
}

// EmbedBatch embeds texts in order. Blank entries yield zero vectors of
// the loaded model's dimension. An empty input returns without locking.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) (_ []Vector, err error) {
	if len(texts) == 0 {
		return []Vector{}, nil
	}

	ctx, span := e.tracer.Start(ctx, "embedding.EmbedBatch", trace.WithAttributes(attribute.Int("texts", len(texts))))
	start := time.Now()
	defer func() {
		e.metrics.Inferences.WithLabelValues("local", result(err)).Inc()
		e.metrics.Duration.WithLabelValues("embed_batch").Observe(time.Since(start).Seconds())
		endSpan(span, err)
	}()

	if err := e.inference.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.inference.Release(1)

	sess, err := e.ensureLoadedLocked(ctx)
	if err != nil {
		return nil, err
	}

	dims := sess.Dims()
	out := make([]Vector, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make(Vector, dims)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := sess.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding: embed batch item %d: %w", i, err)
		}
		out[i] = v
	}
	e.touch()
	return out, nil
}

// CosineSimilarity returns the cosine similarity of a and b.
func (e *Engine) CosineSimilarity(a, b Vector) float64 {
	return CosineSimilarity(a, b)
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// IsLoaded reports whether a local model is loaded.
func (e *Engine) IsLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Phase == PhaseLoaded
}

// CurrentModel returns the loaded model id.
func (e *Engine) CurrentModel() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state.Phase != PhaseLoaded {
		return "", false
	}
	return e.state.Model, true
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Status returns the diagnostic view of the engine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	st := Status{State: e.state, LastUsed: e.lastUsed}
	if e.session != nil && e.state.Phase == PhaseLoaded {
		st.Dims = e.session.Dims()
	}
	e.mu.RUnlock()

	st.Catalog = make([]ModelStatus, 0, len(e.catalog))
	for _, spec := range e.catalog {
		st.Catalog = append(st.Catalog, ModelStatus{
			ID:         spec.ID,
			Dims:       spec.Dims,
			Downloaded: e.artifactExists(spec.ID),
		})
	}
	st.Remotes = make([]string, 0, len(e.remotes))
	for name := range e.remotes {
		st.Remotes = append(st.Remotes, name)
	}
	sort.Strings(st.Remotes)
	return st
}

// Catalog returns the local model preference list.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

func (e *Engine) loadedAndHealthy(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Phase == PhaseLoaded && e.state.Model == id && e.session != nil && e.session.Healthy()
}

func (e *Engine) artifactExists(id string) bool {
	return e.artifacts != nil && e.artifacts.Exists(id)
}

func (e *Engine) setState(s State, sess Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
	e.session = sess
	if s.Phase == PhaseLoaded {
		e.lastUsed = e.now()
	}
}

func (e *Engine) touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = e.now()
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Interface guard.
var _ Embedder = (*Engine)(nil)
