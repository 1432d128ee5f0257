package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, 99, cfg.HistoryMaxSteps)
		assert.Equal(t, 10*time.Millisecond, cfg.SchedulerInterval)
		assert.Len(t, cfg.ModelOptions(), 3)
	})

	t.Run("File overrides", func(t *testing.T) {
		path := writeConfig(t, `
history_max_steps: 5
scheduler_interval: 25ms
log_level: debug
mode: headless
redis:
  addr: localhost:6379
  db: 2
  prefix: "test:"
  ttl: 1h
http:
  addr: ":9000"
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.HistoryMaxSteps)
		assert.Equal(t, 25*time.Millisecond, cfg.SchedulerInterval)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, string(model.ModeHeadless), cfg.Mode)
		assert.Equal(t, RedisConfig{Addr: "localhost:6379", DB: 2, Prefix: "test:", TTL: time.Hour}, cfg.Redis)
		assert.Equal(t, ":9000", cfg.HTTP.Addr)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := Load(writeConfig(t, "history_max_steps: 0\n"))
		assert.ErrorContains(t, err, "history_max_steps")

		_, err = Load(writeConfig(t, "mode: kiosk\n"))
		assert.ErrorContains(t, err, "unknown mode")

		_, err = Load(writeConfig(t, "history_max_steps: [1\n"))
		assert.ErrorContains(t, err, "failed to parse config")

		_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config")
	})
}
