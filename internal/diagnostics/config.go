package diagnostics

import (
	"time"

	"github.com/flemzord/confidant/internal/security"
)

// Config holds diagnostics server configuration.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// Addr is the listen address. Loopback by default.
	Addr            string                   `yaml:"addr"`
	Auth            AuthConfig               `yaml:"auth"`
	MaxBodyBytes    int                      `yaml:"max_body_bytes"`
	RateLimit       security.RateLimitConfig `yaml:"rate_limit"`
	ReadTimeout     time.Duration            `yaml:"read_timeout"`
	WriteTimeout    time.Duration            `yaml:"write_timeout"`
	ShutdownTimeout time.Duration            `yaml:"shutdown_timeout"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:7878"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = security.DefaultMaxBodySize
	}
	c.RateLimit.Defaults()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// Long enough for a dry-run assembly with focus analysis.
		c.WriteTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig configures authentication for the operator endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
