package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examquest/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	log, err := New(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	log.Info("session started")
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"msg":"session started"`), "got %s", b)
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "shouty"})
	assert.Error(t, err)
}

func TestNew_NoSinksIsNop(t *testing.T) {
	log, err := New(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("discarded")
}
