// Package focus runs the pre-pass analysis that finds the emotionally
// salient topics of a user message and renders them as a focus block.
package focus

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/confidant/internal/provider"
)

// Template placeholders.
const (
	MessagePlaceholder = "{{message}}"
	FocusPlaceholder   = "{{focus}}"
)

const (
	defaultAnalysisTemperature = 0.3
	defaultAnalysisMaxTokens   = 256
)

// Generator issues a collected generation call. provider.Registry satisfies it.
type Generator interface {
	Generate(ctx context.Context, model provider.ModelRef, req provider.CompletionRequest) (string, error)
}

// Config tunes the analysis call.
type Config struct {
	// Temperature of the analysis call. Zero selects 0.3.
	Temperature float64 `yaml:"temperature"`
	// MaxTokens of the analysis answer. Zero selects 256.
	MaxTokens int `yaml:"max_tokens"`
}

// Request is one focus extraction.
type Request struct {
	Model            provider.ModelRef
	UserText         string
	AnalysisTemplate string
	FocusTemplate    string
	// CallerTemperature caps the analysis temperature when set.
	CallerTemperature *float64
}

// Extractor runs focus extraction. It never returns an error: any failure
// degrades to an empty focus block.
type Extractor struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExtractor creates an Extractor.
func NewExtractor(gen Generator, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultAnalysisTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnalysisMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		gen:    gen,
		cfg:    cfg,
		logger: logger.With("component", "focus"),
		tracer: otel.Tracer("github.com/flemzord/confidant/internal/focus"),
	}
}

// Extract returns the rendered focus block, or "" when the analysis
// yields no strong focus point.
func (x *Extractor) Extract(ctx context.Context, req Request) string {
	if strings.TrimSpace(req.AnalysisTemplate) == "" || strings.TrimSpace(req.UserText) == "" {
		return ""
	}

	ctx, span := x.tracer.Start(ctx, "focus.Extract", trace.WithAttributes(
		attribute.String("provider", req.Model.Provider),
		attribute.String("model", req.Model.ID),
	))
	defer span.End()

	temp := x.cfg.Temperature
	if req.CallerTemperature != nil && *req.CallerTemperature < temp {
		temp = *req.CallerTemperature
	}

	prompt := strings.ReplaceAll(req.AnalysisTemplate, MessagePlaceholder, req.UserText)
	answer, err := x.gen.Generate(ctx, req.Model, provider.CompletionRequest{
		Messages:    []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: prompt}},
		MaxTokens:   x.cfg.MaxTokens,
		Temperature: provider.Float(temp),
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			x.logger.Warn("focus analysis failed", "model", req.Model.ID, "error", err)
		}
		span.RecordError(err)
		return ""
	}

	points, err := ParseStrongPoints(answer)
	if err != nil {
		x.logger.Debug("focus analysis unusable", "error", err)
		span.SetAttributes(attribute.Bool("malformed", true))
		return ""
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	if len(points) == 0 {
		return ""
	}

	return strings.ReplaceAll(req.FocusTemplate, FocusPlaceholder, strings.Join(points, ", "))
}
