package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"option-calc-go/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("Console", func(t *testing.T) {
		log, err := NewLogger(config.Logger{Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("JSON", func(t *testing.T) {
		log, err := NewLogger(config.Logger{Level: "warn", Format: "json"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := NewLogger(config.Logger{Level: "chatty"})
		assert.Error(t, err)
	})

	t.Run("RotatedFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "optcalc.log")
		log, err := NewLogger(config.Logger{Level: "info", Format: "json", File: path, MaxSize: 1})
		require.NoError(t, err)

		log.Info("calculation served")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "calculation served")
	})
}
