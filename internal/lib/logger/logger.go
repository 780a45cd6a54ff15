// Package logger builds the process logger.
package logger

import (
	"io"
	"log/slog"
)

// Env values that change the output.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Setup returns a text logger at debug level for local and dev, and a JSON
// logger at info level for prod.
func Setup(env string, w io.Writer) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal, envDev:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// ShowsStack reports whether panic replies may carry a stack trace in env.
func ShowsStack(env string) bool {
	return env == envLocal || env == envDev
}
