// Package logger configures the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup creates and installs the default slog logger at the given level
// ("debug", "info", "warn", "error"; anything else falls back to "info").
func Setup(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// Logger returns a default info-level logger, for callers that don't need
// their own Setup (tests, one-off tools).
func Logger() *slog.Logger {
	return Setup("info")
}
