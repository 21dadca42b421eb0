// Package diagnostics provides the local HTTP server used to inspect and
// operate a running confidant process: health, metrics, engine state,
// dry-run context assembly and background jobs. It binds to loopback by
// default.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/security"
)

// Engine is the part of the embedding engine the server exposes.
type Engine interface {
	LoadModel(ctx context.Context, id string) error
	UnloadModel(ctx context.Context) error
	Status() embedding.Status
}

// Assembler runs a context assembly.
type Assembler interface {
	Assemble(ctx context.Context, req ctxengine.AssemblyRequest) (ctxengine.AssemblyResult, error)
}

// Jobs lists and triggers background jobs.
type Jobs interface {
	Names() []string
	RunNow(ctx context.Context, name string) error
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators of a Server. Engine and Assembler are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Engine    Engine
	Assembler Assembler
	Jobs      Jobs
	Store     Pinger
	Providers []string

	// Gatherer backs GET /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer

	// ConfigView returns the effective configuration as a generic
	// document. It is redacted before being served.
	ConfigView func() (map[string]any, error)
	Redactor   *security.Redactor

	// DefaultModel and DefaultGeneration fill the fields a dry-run
	// request leaves out.
	DefaultModel      provider.ModelRef
	DefaultGeneration ctxengine.GenerationConfig
	// ContextWindow sizes the budget reported by a dry run. 0 means unknown.
	ContextWindow int

	Version string
	Logger  *slog.Logger
}

// Server is the diagnostics HTTP server.
type Server struct {
	config  Config
	deps    Deps
	logger  *slog.Logger
	limiter *security.RateLimiter
	metrics *Metrics
	handler http.Handler

	startedAt time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a Server and builds its router. No socket is opened.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil || deps.Assembler == nil {
		return nil, errors.New("diagnostics: engine and assembler are required")
	}
	cfg.Defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Redactor == nil {
		deps.Redactor = security.NewRedactor()
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger.With("component", "diagnostics"),
		limiter:   security.NewRateLimiter(cfg.RateLimit),
		metrics:   NewMetrics(deps.Registerer),
		startedAt: time.Now(),
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics.middleware)

	// Public: probes and scraping.
	r.Get("/health", s.handleHealth())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if s.config.Auth.IsConfigured() {
			r.Use(authMiddleware(s.config.Auth, s.logger))
		}
		r.Get("/status", s.handleStatus())
		r.Get("/config", s.handleGetConfig())

		r.Get("/engine", s.handleEngineStatus())
		r.Post("/engine/load", s.handleEngineLoad())
		r.Post("/engine/unload", s.handleEngineUnload())

		r.Post("/assemble", s.handleAssemble())

		r.Get("/jobs", s.handleListJobs())
		r.Post("/jobs/{name}/run", s.handleRunJob())
	})

	return r
}

// Start opens the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("diagnostics: server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("diagnostics: listen failed: %w", err)
	}
	if !s.config.Auth.IsConfigured() && !isLoopback(ln.Addr()) {
		s.logger.Warn("diagnostics: serving operator endpoints without auth on a non-loopback address", "addr", ln.Addr().String())
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.server = srv
	s.listener = ln

	go func() {
		s.logger.Info("diagnostics listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diagnostics serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("diagnostics shutting down")
	return srv.Shutdown(shutdownCtx)
}

func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	return ok && tcp.IP.IsLoopback()
}
