// Package telemetry installs the process-wide OpenTelemetry tracer
// provider. Spans are batched and exported over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config controls span export.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP receiver as host:port. Defaults to
	// localhost:4318.
	Endpoint string `yaml:"endpoint"`

	// Insecure sends spans over plain HTTP.
	Insecure bool `yaml:"insecure"`

	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root spans kept, in [0, 1].
	// Defaults to 1.
	SampleRatio *float64 `yaml:"sample_ratio"`
}

// Defaults fills zero fields.
func (c *Config) Defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.ServiceName == "" {
		c.ServiceName = "confidant"
	}
	if c.SampleRatio == nil {
		r := 1.0
		c.SampleRatio = &r
	}
}

// Validate checks the configuration after Defaults.
func (c *Config) Validate() error {
	var errs []error
	if strings.Contains(c.Endpoint, "://") {
		errs = append(errs, fmt.Errorf("telemetry: endpoint must be host:port, got %q", c.Endpoint))
	}
	if c.SampleRatio != nil && (*c.SampleRatio < 0 || *c.SampleRatio > 1) {
		errs = append(errs, fmt.Errorf("telemetry: sample_ratio must be in [0, 1], got %v", *c.SampleRatio))
	}
	return errors.Join(errs...)
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Setup installs a tracer provider as the otel global. When telemetry is
// disabled the global no-op provider is left in place and the returned
// ShutdownFunc does nothing.
func Setup(ctx context.Context, cfg Config, version string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
