package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.GetSnapshotInterval())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:9000
snapshot_interval: 5s
snapshot_gc: false
redis:
  addr: redis:6379
  db: 2
logging:
  level: debug
  pretty: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.GetSnapshotInterval())
	assert.False(t, cfg.SnapshotGC)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:9000\n"), 0o644))

	t.Setenv("CLOUDOCS_ADDR", ":7000")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("CLOUDOCS_SNAPSHOT_INTERVAL", "1m")
	t.Setenv("CLOUDOCS_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, time.Minute, cfg.GetSnapshotInterval())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestGetSnapshotInterval_Fallback(t *testing.T) {
	for _, v := range []string{"", "soon", "-1s", "0s"} {
		cfg := &Config{SnapshotInterval: v}
		assert.Equal(t, 30*time.Second, cfg.GetSnapshotInterval(), v)
	}
}
