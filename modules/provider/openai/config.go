package openai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds the configuration for an OpenAI or OpenAI-compatible
// provider (Ollama, OpenRouter, vLLM...).
type Config struct {
	// Name is the provider name used for registry and credential lookup.
	Name           string   `yaml:"name"`
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	EmbeddingModel string   `yaml:"embedding_model"`
	MaxTokens      int      `yaml:"max_tokens"`
	Temperature    *float64 `yaml:"temperature"`
	TopP           *float64 `yaml:"top_p"`
	Timeout        string   `yaml:"timeout"`
	// NoAuth marks endpoints that accept requests without a key, such as
	// a local Ollama server.
	NoAuth bool `yaml:"no_auth"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "openai"
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

// validate checks the configuration after defaults have been applied.
func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("provider.openai: name is required"))
	}
	if err := c.validateTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.openai: max_tokens must be >= 0, got %d", c.MaxTokens))
	}
	return errors.Join(errs...)
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated by validateTimeout.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// validateTimeout checks that the timeout string is a valid Go duration.
func (c *Config) validateTimeout() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("provider.openai: invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("provider.openai: timeout must be positive, got %q", c.Timeout)
	}
	return nil
}

// reasoningModel reports whether the model belongs to the o-series, which
// rejects max_tokens and custom sampling parameters.
func reasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
