package app

import (
	"log/slog"
	"os"

	"github.com/flemzord/confidant/internal/config"
	"github.com/flemzord/confidant/internal/security"
)

// newLogger builds the root logger. Every record passes through the
// redactor before reaching the handler.
func newLogger(cfg config.LogConfig, opts Options, redactor *security.Redactor) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if opts.LogLevel != nil {
		level = *opts.LogLevel
	}

	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, handlerOpts)
	} else {
		inner = slog.NewTextHandler(w, handlerOpts)
	}
	return security.NewLogger(inner, redactor)
}
