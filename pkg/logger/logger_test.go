package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	l, err := Init("DEBUG", "console")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
	require.Same(t, l, L())

	l, err = Init(" warn ", "json")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = Init("loud", "json")
	require.Error(t, err)
	_, err = Init("info", "xml")
	require.Error(t, err)
}

func TestNamed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	Named("lifecycle").Info("project status changed")
	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "lifecycle", entries[0].LoggerName)
}
