package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 30*time.Second, cfg.Room.DisconnectGrace)
	assert.Equal(t, 2*time.Minute, cfg.Room.AbandonTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Room.LobbyTimeout)
	assert.Equal(t, 16, cfg.Room.MaxSpectators)
	assert.Equal(t, 10, cfg.RateLimit.Moves)
	assert.Equal(t, time.Second, cfg.RateLimit.Interval)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File.Path)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`
mode: debug
port: 9090
room:
  disconnect_grace: 5s
store:
  driver: memory
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("GAMBIT_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 7070, cfg.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Room.DisconnectGrace)
	assert.Equal(t, 2*time.Minute, cfg.Room.AbandonTimeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
}
