package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("info by default", func(t *testing.T) {
		l, err := New("tripmate-api", false, false)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("debug when asked", func(t *testing.T) {
		l, err := New("tripmate-api", true, true)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestConfig(t *testing.T) {
	t.Run("maps log settings", func(t *testing.T) {
		cfg := Config("tripmate-api", false, false)
		assert.Equal(t, "console", cfg.Encoding)
		assert.True(t, cfg.DisableStacktrace)

		cfg = Config("tripmate-api", true, true)
		assert.Equal(t, "json", cfg.Encoding)
		assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
		assert.False(t, cfg.DisableStacktrace)
	})

	t.Run("entries carry the service", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "log.json")
		cfg := Config("tripmate-seeder", true, false)
		cfg.OutputPaths = []string{out}

		l, err := cfg.Build()
		require.NoError(t, err)
		l.Info("seeded", zap.Int("users", 3))
		require.NoError(t, l.Sync())

		raw, err := os.ReadFile(out)
		require.NoError(t, err)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		assert.Equal(t, "tripmate-seeder", entry["service"])
		assert.Equal(t, "seeded", entry["msg"])
		assert.Equal(t, "info", entry["level"])
		assert.EqualValues(t, 3, entry["users"])
	})

	t.Run("no service field when unnamed", func(t *testing.T) {
		assert.Nil(t, Config("", true, false).InitialFields)
	})
}
