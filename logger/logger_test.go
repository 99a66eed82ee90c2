package logger

import (
	"SeqIndex/settings"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqindex.log")
	log, err := New(settings.Logger{LogLevel: "warn", FileLogName: path, MaxSize: 1})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.String("index", "id"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"index":"id"`)
}

func TestBadLevel(t *testing.T) {
	_, err := New(settings.Logger{LogLevel: "loud"})
	assert.Error(t, err)
}
