package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedSlog(level slog.Level) (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})

	return NewSlog(slog.New(handler)), buf
}

func TestNewSlog_NilFallsBackToDefault(t *testing.T) {
	logger := NewSlog(nil)

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestSlogLogger_Levels(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelDebug)

	logger.Debug("worker created", "worker", "app-worker-1")
	logger.Info("state transition", "from", "Created", "to", "Rebalancing")
	logger.Warn("worker did not stop in time", "worker", "app-worker-2")
	logger.Error("teardown step failed", "step", "admin")

	output := buf.String()
	assert.Contains(t, output, "level=DEBUG")
	assert.Contains(t, output, "worker=app-worker-1")
	assert.Contains(t, output, "from=Created")
	assert.Contains(t, output, "to=Rebalancing")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, "step=admin")
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Empty(t, buf.String())

	logger.Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestSlogLogger_With(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelInfo)

	logger.With("client_id", "app-1").Info("started")

	output := buf.String()
	assert.Contains(t, output, "client_id=app-1")
	assert.Contains(t, output, "started")
}

func TestFormatKeyValues(t *testing.T) {
	require.Empty(t, formatKeyValues(nil))
	require.Equal(t, "a=1 b=<missing>", formatKeyValues([]any{"a", 1, "b"}))
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	require.NotPanics(t, func() {
		logger.Debug("x")
		logger.Info("x", "k", "v")
		logger.Warn("x")
		logger.Error("x")
		logger.Fatal("x")
	})
}
