// Package logging provides structured logging utilities.
//
// Text logs are formatted in Maven style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
// JSON logs use the standard slog JSON handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
)

// NewLogger creates a structured logger based on config
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewMavenHandler(w, opts))
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "reconcile", "api")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With("system", system)
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewOperationID returns an id for one invocation of a command:
// {name}_{YYYYMMDD}_{HHMMSS}_{8 hex chars}.
func NewOperationID(name string) string {
	return newOperationID(name, time.Now(), uuid.NewString())
}

func newOperationID(name string, at time.Time, id string) string {
	return name + "_" + at.Format("20060102_150405") + "_" + strings.ReplaceAll(id, "-", "")[:8]
}
