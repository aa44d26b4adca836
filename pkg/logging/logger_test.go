package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return FromZap(zap.New(core), "test-service"), logs
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(Config{Level: "info", Format: "json", Output: path, ServiceName: "log-generator"})
	require.NoError(t, err)
	assert.Equal(t, "log-generator", logger.ServiceName())

	logger.Info("hello", zap.Int("count", 3))
	logger.Debug("hidden")
	logger.Cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"service":"log-generator"`)
	assert.Contains(t, lines[0], `"count":3`)
}

func TestWithHelpersAddFields(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)

	logger.WithComponent("stream-mixer").
		WithRunID("run-1").
		WithError(errors.New("boom")).
		WithFields(zap.String("sink", "file")).
		Info("message")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "stream-mixer", fields["component"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "file", fields["sink"])
}

func TestLogAnomalyInjected(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)

	logger.LogAnomalyInjected("transaction", "fraud", "user_0042")

	entries := logs.FilterMessage("Anomaly injected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "user_0042", entries[0].ContextMap()["user_id"])
}

func TestLogPerformance(t *testing.T) {
	logger, logs := observed(zapcore.InfoLevel)

	logger.LogPerformance("generate_logs", 1500*time.Millisecond)

	entries := logs.FilterMessage("Performance metric").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "generate_logs", entries[0].ContextMap()["operation"])
	assert.Equal(t, 1500.0, entries[0].ContextMap()["duration_ms"])
}

func TestNopAndWrappedLoggers(t *testing.T) {
	NewNopLogger().Info("discarded")

	dev, err := NewLogger(Config{Level: "debug", Format: "console", ServiceName: "dev", Development: true})
	require.NoError(t, err)
	assert.Equal(t, "dev", dev.ServiceName())

	assert.NotNil(t, FromZap(nil, "x").Logger)
}
