package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(Config{})
	require.NoError(t, err)
	require.NotNil(t, log)
	// Must not panic on use.
	log.Info("defaults ok", String("k", "v"))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	log, err := NewLogger(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	log.Debug("json ok")
}

func TestZapLogger_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("round complete",
		Int("round", 3),
		Float64("min_energy", -12.5),
		Bool("converged", false),
		Err(nil),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "round complete", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 3, fields["round"])
	assert.Equal(t, -12.5, fields["min_energy"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("search").With(String("molecule", "macro1"))

	log.Warn("stagnant round")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "search", entries[0].LoggerName)
	assert.Equal(t, "macro1", entries[0].ContextMap()["molecule"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// All methods are safe no-ops.
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
	assert.NotNil(t, log.With(String("a", "b")))
	assert.NotNil(t, log.Named("child"))
}
