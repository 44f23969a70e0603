package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// an empty file keeps every default in place
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 8600, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8600", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, int64(1048576), cfg.Capture.MaxBodySize)
	assert.Equal(t, time.Minute, cfg.Reaper.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  base_url: https://hooks.example.com
redis:
  enabled: false
reaper:
  interval: 15s
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://hooks.example.com", cfg.Server.BaseURL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// untouched sections keep their defaults
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, int64(1048576), cfg.Capture.MaxBodySize)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
