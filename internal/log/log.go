package log

import (
	"io"
	"log/slog"
	"strings"
)

// New builds the application logger. The REPL keeps the default
// writer quiet (io.Discard) unless verbose mode is on.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func Discard() *slog.Logger {
	return New(io.Discard, slog.LevelError)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err wraps an error as a slog attribute.
func Err(err error) slog.Attr {
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}

// Secret logs at most the first 5 characters of a sensitive value.
func Secret(s string) slog.Attr {
	r := "***"
	if len(s) > 5 {
		r = s[:5] + "***"
	}
	if s == "" {
		r = "?"
	}
	return slog.Attr{Key: "secret", Value: slog.StringValue(r)}
}
