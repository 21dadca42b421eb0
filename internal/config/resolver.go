package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/confidant/modules/provider/gemini"
)

const (
	defaultDataDir       = "~/.confidant"
	defaultIdleUnload    = "10m"
	defaultBackfillBatch = 32
)

// ApplyDefaults fills zero-valued fields and resolves paths derived from
// DataDir. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.DataDir = expandHome(c.DataDir)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Embedding.ModelDir == "" {
		c.Embedding.ModelDir = filepath.Join(c.DataDir, "models")
	}
	c.Embedding.ModelDir = expandHome(c.Embedding.ModelDir)
	if c.Embedding.IdleUnload == "" {
		c.Embedding.IdleUnload = defaultIdleUnload
	}
	if c.Embedding.BackfillBatch <= 0 {
		c.Embedding.BackfillBatch = defaultBackfillBatch
	}

	c.Storage.SQLite.Path = expandHome(c.Storage.SQLite.Path)
	c.Storage.SQLite.Defaults(c.DataDir)

	c.Diagnostics.Defaults()

	if c.Cron.IdleUnloadSchedule == "" {
		c.Cron.IdleUnloadSchedule = "*/5 * * * *"
	}
	if c.Cron.BackfillSchedule == "" {
		c.Cron.BackfillSchedule = "*/15 * * * *"
	}
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers.OpenAI)+1)
	for _, p := range c.Providers.OpenAI {
		names = append(names, providerName(p.Name))
	}
	if c.Providers.Gemini != nil {
		names = append(names, gemini.Name)
	}
	slices.Sort(names)
	return names
}

// IdleUnloadDuration returns the parsed idle unload period. Zero means
// the idle job is disabled.
func (c *Config) IdleUnloadDuration() time.Duration {
	d, err := time.ParseDuration(c.Embedding.IdleUnload)
	if err != nil {
		return 0
	}
	return d
}

// providerName mirrors the openai provider default name.
func providerName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "openai"
	}
	return name
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
