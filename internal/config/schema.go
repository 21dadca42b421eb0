// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for confidant.
package config

import (
	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/diagnostics"
	"github.com/flemzord/confidant/internal/focus"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/telemetry"
	"github.com/flemzord/confidant/modules/memory/sqlite"
	"github.com/flemzord/confidant/modules/provider/gemini"
	"github.com/flemzord/confidant/modules/provider/openai"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds the database and local model artifacts. A leading
	// "~/" is expanded to the home directory.
	DataDir string `yaml:"data_dir"`

	Log LogConfig `yaml:"log"`

	// Credentials maps provider names to API keys. Keys missing here are
	// read from the provider's environment variables.
	Credentials map[string]string `yaml:"credentials,omitempty"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`

	// Model is the generation model used by the CLI and the diagnostics
	// dry run when a request does not name one.
	Model provider.ModelRef `yaml:"model"`

	Generation  ctxengine.GenerationConfig `yaml:"generation"`
	Focus       focus.Config               `yaml:"focus"`
	Assembler   ctxengine.AssemblerConfig  `yaml:"assembler"`
	Diagnostics diagnostics.Config         `yaml:"diagnostics"`
	Telemetry   telemetry.Config           `yaml:"telemetry"`
	Cron        CronConfig                 `yaml:"cron"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// EmbeddingConfig configures the shared embedding engine.
type EmbeddingConfig struct {
	// ModelDir holds local model artifacts. Defaults to {data_dir}/models.
	ModelDir string `yaml:"model_dir"`

	// Preload is a catalog model loaded at startup. Empty defers loading
	// to the first inference.
	Preload string `yaml:"preload,omitempty"`

	// IdleUnload is how long the local model may stay unused before the
	// cron job unloads it. "0" disables the job.
	IdleUnload string `yaml:"idle_unload"`

	// Provider routes retrieval queries to a remote embedding endpoint
	// instead of the local model. Empty means local.
	Provider string `yaml:"provider,omitempty"`
	// Model is the remote embedding model. Empty uses the provider default.
	Model string `yaml:"model,omitempty"`

	// BackfillBatch is the number of texts embedded per backfill batch.
	BackfillBatch int `yaml:"backfill_batch"`
}

// ProvidersConfig lists the generation and remote embedding providers.
type ProvidersConfig struct {
	// OpenAI holds OpenAI and OpenAI-compatible endpoints, one per name.
	OpenAI []openai.Config `yaml:"openai,omitempty"`
	Gemini *gemini.Config  `yaml:"gemini,omitempty"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	SQLite sqlite.Config `yaml:"sqlite"`
}

// CronConfig configures background jobs.
type CronConfig struct {
	Enabled bool `yaml:"enabled"`
	// IdleUnloadSchedule defaults to every five minutes.
	IdleUnloadSchedule string `yaml:"idle_unload_schedule"`
	// BackfillSchedule defaults to every fifteen minutes.
	BackfillSchedule string `yaml:"backfill_schedule"`
}

// Default returns a configuration with every default applied. Load
// decodes the file on top of it.
func Default() *Config {
	cfg := base()
	cfg.Version = "1"
	cfg.ApplyDefaults()
	return cfg
}

// base holds the defaults that must be in place before decoding, so that
// partially specified sections keep the remaining default values.
func base() *Config {
	return &Config{Generation: ctxengine.DefaultGenerationConfig()}
}
