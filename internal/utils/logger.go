package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelOff sits above every level the service emits and silences the logger.
const LevelOff = slog.LevelError + 4

// ParseLevel maps a verbosity name onto a slog level. Unknown names fall back to warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off":
		return LevelOff
	default:
		return slog.LevelWarn
	}
}

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
// A nil writer logs to stdout.
func NewLogger(level string, json bool, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

type loggerKey struct{}

// ContextWithLogger attaches a request-scoped logger to ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger attached to ctx, or fallback when there is none.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
