// Package log configures the process-wide slog logger for the jobflow
// binaries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default logger at the requested level. Every line
// carries the service attribute so mixed log streams stay attributable.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler).With("service", "jobflow"))
}

// WithModule returns the default logger scoped to one module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
