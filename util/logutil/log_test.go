package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLogger(t *testing.T) {
	defer SetLogger(nil)
	require.NoError(t, InitLogger("debug", "json"))
	require.True(t, BgLogger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger("", ""))
	require.False(t, BgLogger().Core().Enabled(zap.DebugLevel))

	require.Error(t, InitLogger("loud", "text"))
	require.Error(t, InitLogger("info", "xml"))
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	BgLogger().Info("hello", zap.Int("n", 1))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "hello", logs.All()[0].Message)

	SetLogger(nil)
	require.NotNil(t, BgLogger())
}
