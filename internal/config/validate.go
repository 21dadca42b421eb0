package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/modules/provider/gemini"
)

// cronParser accepts the five-field expressions the scheduler runs.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the structural validity of a Config after defaults
// have been applied. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		errs = append(errs, errors.New("config: data_dir is required"))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateProviders(cfg)...)
	errs = append(errs, validateEmbedding(cfg)...)
	errs = append(errs, validateModel(cfg)...)
	errs = append(errs, validateGeneration(cfg.Generation)...)

	if err := cfg.Storage.SQLite.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: storage.sqlite: %w", err))
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if cfg.Assembler.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("config: assembler.context_window must be >= 0, got %d", cfg.Assembler.ContextWindow))
	}
	if cfg.Assembler.CharsPerToken < 0 {
		errs = append(errs, fmt.Errorf("config: assembler.chars_per_token must be >= 0, got %v", cfg.Assembler.CharsPerToken))
	}
	if cfg.Diagnostics.Enabled && strings.TrimSpace(cfg.Diagnostics.Addr) == "" {
		errs = append(errs, errors.New("config: diagnostics.addr is required when diagnostics are enabled"))
	}
	errs = append(errs, validateCron(cfg.Cron)...)

	return errors.Join(errs...)
}

func validateLog(l LogConfig) []error {
	var errs []error
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if l.Format != "text" && l.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", l.Format))
	}
	return errs
}

func validateProviders(cfg *Config) []error {
	var errs []error
	seen := make(map[string]bool)

	for i, p := range cfg.Providers.OpenAI {
		name := providerName(p.Name)
		if seen[name] {
			errs = append(errs, fmt.Errorf("config: providers.openai[%d]: duplicate provider name %q", i, name))
		}
		seen[name] = true
		if p.Timeout != "" {
			if d, err := time.ParseDuration(p.Timeout); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("config: providers.openai[%d]: invalid timeout %q", i, p.Timeout))
			}
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("config: providers.openai[%d]: max_tokens must be >= 0", i))
		}
	}

	if g := cfg.Providers.Gemini; g != nil {
		if seen[gemini.Name] {
			errs = append(errs, fmt.Errorf("config: provider name %q is reserved for providers.gemini", gemini.Name))
		}
		if g.Timeout != "" {
			if _, err := time.ParseDuration(g.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("config: providers.gemini: invalid timeout %q", g.Timeout))
			}
		}
	}
	return errs
}

func validateEmbedding(cfg *Config) []error {
	var errs []error
	e := cfg.Embedding
	if d, err := time.ParseDuration(e.IdleUnload); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("config: embedding.idle_unload: invalid duration %q", e.IdleUnload))
	}
	if e.Provider != "" && !cfg.hasProvider(e.Provider) {
		errs = append(errs, fmt.Errorf("config: embedding.provider %q is not configured", e.Provider))
	}
	return errs
}

func validateModel(cfg *Config) []error {
	m := cfg.Model
	switch m.Class {
	case "", provider.ClassLocal:
		return nil
	case provider.ClassRemote:
		if !cfg.hasProvider(m.Provider) {
			return []error{fmt.Errorf("config: model.provider %q is not configured", m.Provider)}
		}
		return nil
	default:
		return []error{fmt.Errorf("config: model.class must be local or remote, got %q", m.Class)}
	}
}

func validateGeneration(g ctxengine.GenerationConfig) []error {
	var errs []error
	if g.Temperature < 0 || g.Temperature > 2 {
		errs = append(errs, fmt.Errorf("config: generation.temperature must be in [0, 2], got %v", g.Temperature))
	}
	if g.TopP < 0 || g.TopP > 1 {
		errs = append(errs, fmt.Errorf("config: generation.top_p must be in [0, 1], got %v", g.TopP))
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"max_tokens", g.MaxTokens},
		{"history_limit_pairs", g.HistoryLimitPairs},
		{"memory_limit", g.MemoryLimit},
		{"memory_min_age_days", g.MemoryMinAgeDays},
		{"rag_chunk_limit", g.RAGChunkLimit},
	} {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("config: generation.%s must be >= 0, got %d", f.name, f.value))
		}
	}
	return errs
}

func validateCron(c CronConfig) []error {
	var errs []error
	if _, err := cronParser.Parse(c.IdleUnloadSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: cron.idle_unload_schedule: %w", err))
	}
	if _, err := cronParser.Parse(c.BackfillSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: cron.backfill_schedule: %w", err))
	}
	return errs
}

func (c *Config) hasProvider(name string) bool {
	return slices.Contains(c.ProviderNames(), name)
}
