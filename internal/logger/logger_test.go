package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()
	require.NotNil(t, logger)
	logger.Info("test message")
}

func TestNewLoggerForDebugMode(t *testing.T) {
	debugLogger := NewLoggerForDebugMode(true)
	require.NotNil(t, debugLogger)
	assert.True(t, debugLogger.Core().Enabled(zapcore.DebugLevel))

	infoLogger := NewLoggerForDebugMode(false)
	require.NotNil(t, infoLogger)
	assert.False(t, infoLogger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewDevelopmentLogger(t *testing.T) {
	logger, err := NewDevelopmentLogger()
	require.NoError(t, err)
	require.NotNil(t, logger)
}
