package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/confidant/internal/config"
	"github.com/flemzord/confidant/internal/telemetry"
)

// RunParams configures the serve loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel overrides the configured level when set.
	LogLevel *slog.Level
}

// LoadConfig resolves, loads and validates the configuration file.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts the background jobs and the
// diagnostics server, and blocks until SIGINT or SIGTERM.
func Run(params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return err
	}

	a, err := Build(ctx, cfg, Options{Version: params.Version, LogLevel: params.LogLevel})
	if err != nil {
		return err
	}
	a.Logger.Info("confidant starting", "version", params.Version, "commit", params.Commit, "config", cfgPath)

	if err := a.Preload(ctx); err != nil {
		a.Logger.Warn("preload failed, model will load on first use", "model", cfg.Embedding.Preload, "error", err)
	}
	if cfg.Cron.Enabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			_ = a.Close(context.Background())
			return err
		}
	}
	if a.Diagnostics != nil {
		if err := a.Diagnostics.Start(ctx); err != nil {
			_ = a.Close(context.Background())
			return err
		}
	}

	<-ctx.Done()
	a.Logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.Diagnostics != nil {
		errs = append(errs, a.Diagnostics.Stop(stopCtx))
	}
	errs = append(errs,
		a.Scheduler.Stop(stopCtx),
		a.Close(stopCtx),
		shutdownTracing(stopCtx),
	)
	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/confidant/confidant.yaml →
// ~/.config/confidant/confidant.yaml → ./confidant.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "confidant", "confidant.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "confidant", "confidant.yaml"))
	}

	candidates = append(candidates, "confidant.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
