package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-ringlog/internal/server"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdsocket.yml")
	require.NoError(t, os.WriteFile(path, []byte("listen: ':9100'\nring:\n  capacity: 4\n  pending_limit: 2KiB\n"), 0o644))

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--capacity", "7", "--http", "127.0.0.1:9200"}))
	var f flags
	f.configPath, _ = cmd.Flags().GetString("config")
	f.capacity, _ = cmd.Flags().GetInt("capacity")
	f.httpListen, _ = cmd.Flags().GetString("http")

	cfg, err := loadConfig(f, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen, "unset flags keep file values")
	assert.Equal(t, server.BackendRing, cfg.Backend)
	assert.Equal(t, "127.0.0.1:9200", cfg.HTTP.Listen)

	opts, err := cfg.RingOptions()
	require.NoError(t, err)
	assert.Equal(t, 7, opts.Capacity)
	assert.EqualValues(t, 2048, opts.PendingLimit)
}

func TestLoadConfigRejectsBadBackend(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--backend", "tape"}))
	_, err := loadConfig(flags{backend: "tape"}, cmd.Flags())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = newLogger("loud", "console")
	assert.Error(t, err)
}
