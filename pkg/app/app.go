// Package app wires confidant's components from configuration and
// provides the shared entry points of the confidant binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/confidant/internal/config"
	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/cron"
	"github.com/flemzord/confidant/internal/diagnostics"
	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/focus"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/retrieval"
	"github.com/flemzord/confidant/internal/security"
	"github.com/flemzord/confidant/modules/memory/sqlite"
	"github.com/flemzord/confidant/modules/provider/gemini"
	"github.com/flemzord/confidant/modules/provider/openai"
)

// Options tunes Build.
type Options struct {
	// Version is reported by the diagnostics server.
	Version string
	// LogWriter receives log output. Nil means os.Stderr.
	LogWriter io.Writer
	// LogLevel overrides the configured level when set.
	LogLevel *slog.Level
}

// App holds every wired component. Fields are read-only after Build.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Credentials *security.CredentialStore
	Redactor    *security.Redactor
	Metrics     *prometheus.Registry

	Providers *provider.Registry
	Engine    *embedding.Engine
	Store     *sqlite.Store
	Retriever *retrieval.Retriever
	Focus     *focus.Extractor
	Assembler *ctxengine.Assembler
	Resolver  *memory.InheritanceResolver
	Backfill  *retrieval.Backfiller
	Scheduler *cron.Scheduler

	// Diagnostics is nil unless enabled in configuration.
	Diagnostics *diagnostics.Server
}

// Build wires the application from a validated configuration. It opens
// the database; callers must Close the App.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		Config:      cfg,
		Credentials: security.NewCredentialStore(),
		Redactor:    security.NewRedactor(),
		Metrics:     prometheus.NewRegistry(),
	}
	a.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Logger = newLogger(cfg.Log, opts, a.Redactor)

	a.loadCredentials()

	remotes, err := a.buildProviders()
	if err != nil {
		return nil, err
	}

	catalog := embedding.DefaultCatalog()
	a.Engine = embedding.NewEngine(embedding.EngineConfig{
		Catalog:     catalog,
		Artifacts:   embedding.DirArtifacts{Dir: cfg.Embedding.ModelDir, Catalog: catalog},
		Runtime:     embedding.HashRuntime{},
		Remotes:     remotes,
		Credentials: a.Credentials,
		Logger:      a.Logger,
		Registerer:  a.Metrics,
	})

	a.Store, err = sqlite.Open(ctx, cfg.Storage.SQLite, a.Logger)
	if err != nil {
		return nil, err
	}

	embedder := a.QueryEmbedder()
	a.Retriever = retrieval.New(retrieval.Config{
		Embedder: embedder,
		Facts:    a.Store,
		Excerpts: a.Store,
		Logger:   a.Logger,
	})
	a.Focus = focus.NewExtractor(a.Providers, cfg.Focus, a.Logger)
	a.Assembler = ctxengine.NewAssembler(a.Focus, a.Retriever, cfg.Assembler, a.Logger, a.Metrics)
	a.Resolver = memory.NewInheritanceResolver(a.Store, a.Logger, a.Metrics)
	a.Backfill = retrieval.NewBackfiller(embedder, a.Store, a.Store, cfg.Embedding.BackfillBatch, a.Logger)

	if err := a.buildScheduler(); err != nil {
		_ = a.Store.Close()
		return nil, err
	}

	if cfg.Diagnostics.Enabled {
		a.Diagnostics, err = diagnostics.New(cfg.Diagnostics, diagnostics.Deps{
			Engine:            a.Engine,
			Assembler:         a.Assembler,
			Jobs:              a.Scheduler,
			Store:             a.Store,
			Providers:         a.Providers.Names(),
			Gatherer:          a.Metrics,
			Registerer:        a.Metrics,
			ConfigView:        a.ConfigView,
			Redactor:          a.Redactor,
			DefaultModel:      cfg.Model,
			DefaultGeneration: cfg.Generation,
			ContextWindow:     cfg.Assembler.ContextWindow,
			Version:           opts.Version,
			Logger:            a.Logger,
		})
		if err != nil {
			_ = a.Store.Close()
			return nil, err
		}
	}

	// Every key is known by now: keep them out of logs from here on.
	a.Redactor.SyncCredentials(a.Credentials)
	return a, nil
}

// loadCredentials fills the store from the config file, then from the
// environment for providers still missing a key.
func (a *App) loadCredentials() {
	for name, key := range a.Config.Credentials {
		a.Credentials.SetIfPresent(name, key)
	}
	if g := a.Config.Providers.Gemini; g != nil {
		a.Credentials.SetIfPresent(gemini.Name, g.APIKey)
	}
	for _, p := range a.Config.Providers.OpenAI {
		a.Credentials.SetIfPresent(openAIName(p), p.APIKey)
	}
	if loaded := security.LoadEnvCredentials(a.Credentials, nil); len(loaded) > 0 {
		a.Logger.Debug("credentials loaded from environment", "providers", loaded)
	}
}

// buildProviders creates every configured provider, registers it for
// generation and returns those usable for remote embeddings.
func (a *App) buildProviders() (map[string]embedding.RemoteEmbedder, error) {
	a.Providers = provider.NewRegistry()
	remotes := make(map[string]embedding.RemoteEmbedder)

	for _, pc := range a.Config.Providers.OpenAI {
		pc.Name = openAIName(pc)
		if pc.APIKey == "" {
			pc.APIKey, _ = a.Credentials.Get(pc.Name)
		}
		p, err := openai.New(pc, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("app: provider %q: %w", pc.Name, err)
		}
		a.Providers.Register(p)
		remotes[p.Name()] = p
	}

	if gc := a.Config.Providers.Gemini; gc != nil {
		cfg := *gc
		if cfg.APIKey == "" {
			cfg.APIKey, _ = a.Credentials.Get(gemini.Name)
		}
		p, err := gemini.New(cfg, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("app: provider %q: %w", gemini.Name, err)
		}
		a.Providers.Register(p)
		remotes[p.Name()] = p
	}
	return remotes, nil
}

func (a *App) buildScheduler() error {
	a.Scheduler = cron.NewScheduler(a.Logger)
	if idle := a.Config.IdleUnloadDuration(); idle > 0 {
		if err := a.Scheduler.RegisterJob(&cron.ModelIdleJob{
			Engine:       a.Engine,
			MaxIdle:      idle,
			Logger:       a.Logger,
			ScheduleExpr: a.Config.Cron.IdleUnloadSchedule,
		}); err != nil {
			return err
		}
	}
	return a.Scheduler.RegisterJob(&cron.EmbeddingBackfillJob{
		Backfiller:   a.Backfill,
		Logger:       a.Logger,
		ScheduleExpr: a.Config.Cron.BackfillSchedule,
	})
}

// QueryEmbedder returns the embedder used for retrieval and backfill:
// the configured remote endpoint, or the local engine.
func (a *App) QueryEmbedder() embedding.Embedder {
	if p := a.Config.Embedding.Provider; p != "" {
		return a.Engine.Remote(p, a.Config.Embedding.Model)
	}
	return a.Engine
}

// ConfigView renders the effective configuration as a generic document.
// Callers must redact it before exposing it.
func (a *App) ConfigView() (map[string]any, error) {
	data, err := yaml.Marshal(a.Config)
	if err != nil {
		return nil, fmt.Errorf("app: encoding config: %w", err)
	}
	doc := make(map[string]any)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("app: decoding config: %w", err)
	}
	return doc, nil
}

// InstallModel writes the artifact of a catalog model into the model
// directory, so the engine can load it.
func (a *App) InstallModel(id string) (string, error) {
	spec, err := a.Engine.Catalog().Lookup(id)
	if err != nil {
		return "", err
	}
	dir := a.Config.Embedding.ModelDir
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("app: creating model dir: %w", err)
	}
	path := filepath.Join(dir, spec.FileName)
	if err := embedding.WriteHashManifest(path, embedding.HashManifest{Model: spec.ID, Dims: spec.Dims}); err != nil {
		return "", err
	}
	return path, nil
}

// Preload loads the configured startup model, if any.
func (a *App) Preload(ctx context.Context) error {
	if a.Config.Embedding.Preload == "" {
		return nil
	}
	return a.Engine.LoadModel(ctx, a.Config.Embedding.Preload)
}

// Close releases the model session and the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Engine.UnloadModel(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func openAIName(c openai.Config) string {
	if c.Name == "" {
		return "openai"
	}
	return c.Name
}
