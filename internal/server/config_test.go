package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdsocket.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "127.0.0.1:9100"
max_connections: 32
backend: file
data_file: /tmp/data
timestamp_interval: 5s
ring:
  capacity: 4
  pending_limit: 1MiB
http:
  listen: "127.0.0.1:9101"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Listen)
	assert.Equal(t, 32, cfg.MaxConnections)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "/tmp/data", cfg.DataFile)
	assert.Equal(t, 5*time.Second, cfg.TimestampInterval)
	assert.Equal(t, 1024, cfg.ReadBufferSize)
	assert.Equal(t, "127.0.0.1:9101", cfg.HTTP.Listen)
	assert.Equal(t, 200*time.Millisecond, cfg.HTTP.PollInterval)

	opts, err := cfg.RingOptions()
	require.NoError(t, err)
	assert.Equal(t, 4, opts.Capacity)
	assert.EqualValues(t, 1<<20, opts.PendingLimit)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	opts, err := cfg.RingOptions()
	require.NoError(t, err)
	assert.Equal(t, 10, opts.Capacity)
}

func TestLoadConfigInvalid(t *testing.T) {
	for _, body := range []string{
		"backend: tape\n",
		"backend: file\ndata_file: ''\n",
		"max_connections: -1\n",
	} {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err, body)
	}
}
