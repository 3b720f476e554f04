package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logger configuration
type Config struct {
	Level  string `json:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format Format `json:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// New creates a structured logger writing to stderr
func New(config Config) *slog.Logger {
	return NewWithWriter(config, os.Stderr)
}

// NewWithWriter creates a structured logger writing to w
func NewWithWriter(config Config, w io.Writer) *slog.Logger {
	level := ParseLevel(config.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string to slog.Level, defaulting to warn so the CLI stays quiet
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning", "":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// RedactToken hides a bearer token while keeping its presence visible
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	return "[REDACTED_TOKEN]"
}
