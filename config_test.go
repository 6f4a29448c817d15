package ringlog

import (
	"testing"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromConfig(t *testing.T) {
	for name, test := range map[string]struct {
		config   string
		expected Options
	}{
		"defaults": {
			config:   `{}`,
			expected: DefaultOptions(),
		},
		"numeric size": {
			config:   "capacity: 3\npending_limit: 4096\npool_buffers: false\n",
			expected: Options{Capacity: 3, PendingLimit: 4096},
		},
		"human size": {
			config:   "pending_limit: 64KiB\n",
			expected: Options{Capacity: MaxWriteOperations, PendingLimit: 64 << 10, PoolBuffers: true},
		},
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := yaml.NewConfig([]byte(test.config))
			require.NoError(t, err)
			opts, err := OptionsFromConfig(cfg)
			require.NoError(t, err)
			assert.Equal(t, test.expected, opts)
		})
	}
}

func TestOptionsFromConfigInvalid(t *testing.T) {
	for _, config := range []string{
		"capacity: -1\n",
		"pending_limit: lots\n",
		"pending_limit: -5\n",
	} {
		cfg, err := yaml.NewConfig([]byte(config))
		require.NoError(t, err)
		_, err = OptionsFromConfig(cfg)
		assert.Error(t, err, config)
	}
}

func TestOptionsFromNilConfig(t *testing.T) {
	opts, err := OptionsFromConfig((*ucfg.Config)(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
}
