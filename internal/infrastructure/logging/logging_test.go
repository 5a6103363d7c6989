package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
)

func TestMavenHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "info"})

	logger.With("system", "reconcile", "run_id", "1a2b3c4d-5e6f").
		Info("Match run committed", "entries_created", 2, "vendor", "Tim Hortons")

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\[INFO\] \[RECONCILE\] \[run 1a2b3c4d\] \[\d{2}:\d{2}:\d{2}\] Match run committed`), line)
	assert.Contains(t, line, "entries_created=2")
	assert.Contains(t, line, `vendor="Tim Hortons"`)
	assert.NotContains(t, line, "system=")
	assert.NotContains(t, line, "run_id=")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestMavenHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown", "error", errors.New("boom"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestMavenHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "debug"})

	logger.WithGroup("policy").With("min_score", 0.6).Debug("Loaded",
		slog.Group("window", "days", 5), "elapsed", 1500*time.Millisecond)

	line := buf.String()
	assert.Contains(t, line, "policy.min_score=0.6")
	assert.Contains(t, line, "policy.window.days=5")
	assert.Contains(t, line, "policy.elapsed=1.5s")
}

func TestMavenHandler_NoColorsForBuffers(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LoggingConfig{}).Error("failed")

	assert.NotContains(t, buf.String(), "\033[")
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "info", Format: "JSON"})

	logger.With("system", "api").Info("Listening", "port", "8085")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Listening", rec["msg"])
	assert.Equal(t, "api", rec["system"])
	assert.Equal(t, "8085", rec["port"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewOperationID(t *testing.T) {
	at := time.Date(2024, 6, 3, 14, 5, 9, 0, time.UTC)

	id := newOperationID("reconcile", at, "9f8e7d6c-5b4a-3210-fedc-ba9876543210")
	assert.Equal(t, "reconcile_20240603_140509_9f8e7d6c", id)

	assert.Regexp(t, `^ledger-api_\d{8}_\d{6}_[0-9a-f]{8}$`, NewOperationID("ledger-api"))
}
