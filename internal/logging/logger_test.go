package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		logger, err := NewLogger("debug", format)
		require.NoError(t, err, format)
		require.NotNil(t, logger)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("loud", "console")
	require.Error(t, err)
}

func TestWithRunAddsRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithRun(zap.New(core), "run-1").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "run-1", entries[0].ContextMap()["run_id"])
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
}
