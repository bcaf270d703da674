package log

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sub", "wallter.log")
	logger, err := SetupLogger(&config.LoggingConfig{File: logPath, Level: "INFO"}, false)
	require.NoError(t, err)

	logger.Info("hello", "k", "v")

	assert.FileExists(t, logPath)
}

func TestNullLoggerDiscards(t *testing.T) {
	logger := NullLogger()
	logger.Error("should vanish")
}

func TestTeeHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := teeHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	}}

	logger := slog.New(h)
	logger.Info("fan out", "k", "v")

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), "fan out")
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var quiet, chatty bytes.Buffer
	h := teeHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&chatty, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	slog.New(h).Info("routine")
	assert.Empty(t, quiet.String())
	assert.Contains(t, chatty.String(), "routine")
}
