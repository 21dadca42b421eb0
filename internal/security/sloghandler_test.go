package security

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(r *Redactor, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return NewLogger(inner, r), &buf
}

func TestRedactingHandler(t *testing.T) {
	t.Parallel()

	const secret = "sk-abcdefghijklmnopqrstuvwxyz"

	tests := []struct {
		name string
		log  func(l *slog.Logger)
	}{
		{"message", func(l *slog.Logger) { l.Info("key is " + secret) }},
		{"attribute", func(l *slog.Logger) { l.Info("call", "api_key", secret, "safe", "visible") }},
		{"with attrs", func(l *slog.Logger) { l.With("api_key", secret).Info("call", "safe", "visible") }},
		{"group", func(l *slog.Logger) { l.WithGroup("provider").Info("call", "key", secret, "safe", "visible") }},
		{"group attr", func(l *slog.Logger) {
			l.Info("call", slog.Group("request", slog.String("key", secret), slog.String("safe", "visible")))
		}},
		{"error value", func(l *slog.Logger) { l.Error("failed", "error", errors.New("bad key "+secret), "safe", "visible") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, buf := newTestLogger(NewRedactor(), slog.LevelDebug)
			tt.log(logger)

			out := buf.String()
			if strings.Contains(out, secret) {
				t.Errorf("secret leaked: %s", out)
			}
			if !strings.Contains(out, RedactPlaceholder) {
				t.Errorf("placeholder missing: %s", out)
			}
		})
	}
}

func TestRedactingHandler_LeavesPlainOutput(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(NewRedactor(), slog.LevelDebug)
	logger.Info("model loaded", "model", "hash-mini-384")

	out := buf.String()
	if strings.Contains(out, RedactPlaceholder) || !strings.Contains(out, "hash-mini-384") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewRedactingHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}), NewRedactor())
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
