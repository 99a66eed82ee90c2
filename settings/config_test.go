package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.IndexOptions().Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dir: /var/lib/seqindex
index:
  order: 64
  cachesize: 1024
logger:
  log_level: debug
  file_log_name: /tmp/seqindex.log
  compress: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/seqindex", cfg.Database.Dir)
	assert.Equal(t, 64, cfg.Index.Order)
	assert.Equal(t, 1024, cfg.IndexOptions().CacheSize)
	assert.Equal(t, Default().Index.Fill, cfg.Index.Fill, "unset keys keep their default")
	assert.Equal(t, "debug", cfg.Logger.LogLevel)
	assert.True(t, cfg.Logger.Compress)
	assert.Equal(t, 3, cfg.Logger.MaxBackups)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [1, 2"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
