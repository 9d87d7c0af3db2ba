package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.APIServer)
	assert.Equal(t, "{total}", cfg.Format)
	assert.False(t, cfg.HideIfTotalIsZero)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Metrics.Addr)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api_server: https://github.example.com/api/v3
format: "{total} ({mention})"
interval: 1m
hide_if_total_is_zero: true
max_pages: 20
log:
  level: debug
  pretty: true
redis:
  addr: localhost:6379
  db: 2
metrics:
  addr: :9105
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://github.example.com/api/v3", cfg.APIServer)
	assert.Equal(t, "{total} ({mention})", cfg.Format)
	assert.True(t, cfg.HideIfTotalIsZero)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, ":9105", cfg.Metrics.Addr)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, interval)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "formt: \"{total}\"\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "{total}", cfg.Format)
}

func TestLoad_InvalidInterval(t *testing.T) {
	path := writeConfig(t, "interval: soon\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "format: \"{total}\"\ninterval: 1m\n")

	t.Setenv("GHNOTIFY_FORMAT", "{mention}")
	t.Setenv("GHNOTIFY_INTERVAL", "45s")
	t.Setenv("GHNOTIFY_HIDE_IF_TOTAL_IS_ZERO", "true")
	t.Setenv("GHNOTIFY_MAX_PAGES", "7")
	t.Setenv("GHNOTIFY_LOG_LEVEL", "warn")
	t.Setenv("GHNOTIFY_REDIS_ADDR", "redis:6379")
	t.Setenv("GHNOTIFY_METRICS_ADDR", ":9105")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "{mention}", cfg.Format)
	assert.True(t, cfg.HideIfTotalIsZero)
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, ":9105", cfg.Metrics.Addr)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, interval)
}

func TestToken(t *testing.T) {
	t.Run("primary variable", func(t *testing.T) {
		t.Setenv("GHNOTIFY_GITHUB_TOKEN", "primary")
		t.Setenv("GITHUB_TOKEN", "fallback")

		token, err := Token()
		require.NoError(t, err)
		assert.Equal(t, "primary", token)
	})

	t.Run("fallback variable", func(t *testing.T) {
		t.Setenv("GHNOTIFY_GITHUB_TOKEN", "")
		t.Setenv("GITHUB_TOKEN", "fallback")

		token, err := Token()
		require.NoError(t, err)
		assert.Equal(t, "fallback", token)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("GHNOTIFY_GITHUB_TOKEN", "")
		t.Setenv("GITHUB_TOKEN", "")

		_, err := Token()
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}
