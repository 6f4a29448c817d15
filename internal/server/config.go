package server

import (
	"time"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/pkg/errors"

	ringlog "github.com/luhtfiimanal/go-ringlog"
)

const (
	BackendRing = "ring"
	BackendFile = "file"

	DefaultListen   = ":9000"
	DefaultDataFile = "/var/tmp/aesdsocketdata"
)

// Config holds the aesdsocket server configuration.
type Config struct {
	Listen            string        `config:"listen"`
	MaxConnections    int           `config:"max_connections" validate:"min=0"`
	AcceptRate        float64       `config:"accept_rate" validate:"min=0"`
	ReadBufferSize    int           `config:"read_buffer_size" validate:"min=1"`
	Backend           string        `config:"backend"`
	DataFile          string        `config:"data_file"`
	TimestampInterval time.Duration `config:"timestamp_interval"`
	Ring              *ucfg.Config  `config:"ring"`
	HTTP              HTTPConfig    `config:"http"`
}

// HTTPConfig configures the optional inspection API. It is only served for
// the ring backend.
type HTTPConfig struct {
	Listen       string        `config:"listen"`
	PollInterval time.Duration `config:"poll_interval"`
}

// DefaultConfig mirrors the original daemon: port 9000, one shared data
// file, a timestamp line every ten seconds.
func DefaultConfig() Config {
	return Config{
		Listen:            DefaultListen,
		ReadBufferSize:    1024,
		Backend:           BackendRing,
		DataFile:          DefaultDataFile,
		TimestampInterval: 10 * time.Second,
		HTTP: HTTPConfig{
			PollInterval: 200 * time.Millisecond,
		},
	}
}

// Validate is called by go-ucfg after unpacking.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRing:
	case BackendFile:
		if c.DataFile == "" {
			return errors.New("data_file is required for the file backend")
		}
	default:
		return errors.Errorf("unknown backend %q, expected %q or %q", c.Backend, BackendRing, BackendFile)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.TimestampInterval < 0 {
		return errors.Errorf("timestamp_interval must not be negative, got %s", c.TimestampInterval)
	}
	if c.HTTP.PollInterval <= 0 {
		return errors.Errorf("http.poll_interval must be positive, got %s", c.HTTP.PollInterval)
	}
	return nil
}

// RingOptions builds the ring device options from the ring sub-section.
func (c *Config) RingOptions() (ringlog.Options, error) {
	return ringlog.OptionsFromConfig(c.Ring)
}

// NewConfig unpacks cfg over DefaultConfig.
func NewConfig(cfg *ucfg.Config) (Config, error) {
	c := DefaultConfig()
	if cfg == nil {
		return c, nil
	}
	if err := cfg.Unpack(&c); err != nil {
		return c, errors.Wrap(err, "invalid server config")
	}
	return c, nil
}

// LoadConfig reads a YAML file. An empty path yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return NewConfig(cfg)
}
