package gemini

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the configuration for the Gemini provider.
type Config struct {
	APIKey         string   `yaml:"api_key"`
	Model          string   `yaml:"model"`
	EmbeddingModel string   `yaml:"embedding_model"`
	// TaskType is the embedding task hint sent with every embed request.
	TaskType    string   `yaml:"task_type"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	Timeout     string   `yaml:"timeout"`
	// BaseURL overrides the API endpoint. Empty means the public
	// Generative Language API.
	BaseURL string `yaml:"base_url"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gemini-2.5-flash"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "gemini-embedding-001"
	}
	if c.TaskType == "" {
		c.TaskType = "SEMANTIC_SIMILARITY"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("provider.gemini: invalid timeout %q: %w", c.Timeout, err))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.gemini: max_tokens must be >= 0, got %d", c.MaxTokens))
	}
	return errors.Join(errs...)
}

func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
