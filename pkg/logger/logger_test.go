package logger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T) (ectologger.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return ectologger.NewEctoLogger(zapSink(zap.New(core).Sugar())), logs
}

func TestNew(t *testing.T) {
	log, err := New("debug", true)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	log, err := New("loud", false)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestSinkCarriesError(t *testing.T) {
	log, logs := newObservedLogger(t)

	log.WithError(errors.New("connection refused")).
		WithFields(map[string]any{"identity_id": "b7f9"}).
		Error("failed to create identity")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "failed to create identity", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "connection refused", fmt.Sprint(fields["error"]))
	assert.Equal(t, "b7f9", fields["identity_id"])
}

func TestSinkRoutesLevels(t *testing.T) {
	log, logs := newObservedLogger(t)

	log.Debug("resolved contact")
	log.Info("created identity")
	log.Warn("duplicate canonical email")
	log.Error("merge failed")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}
