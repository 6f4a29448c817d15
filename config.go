package ringlog

import (
	"github.com/dustin/go-humanize"
	"github.com/elastic/go-ucfg"
	"github.com/pkg/errors"
)

// Size is a byte count that unpacks from either a number or a human readable
// string such as "64KiB" or "1MB".
type Size int64

// Unpack implements ucfg.Unpacker.
func (s *Size) Unpack(v interface{}) error {
	switch v := v.(type) {
	case nil:
		*s = 0
	case int64:
		if v < 0 {
			return errors.Errorf("size must not be negative, got %d", v)
		}
		*s = Size(v)
	case uint64:
		*s = Size(v)
	case float64:
		if v < 0 {
			return errors.Errorf("size must not be negative, got %v", v)
		}
		*s = Size(v)
	case string:
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return errors.Wrapf(err, "parse size %q", v)
		}
		*s = Size(n)
	default:
		return errors.Errorf("size must be a number or string, got %#v", v)
	}
	return nil
}

func (s Size) String() string { return humanize.IBytes(uint64(s)) }

// optionsConfig captures the subset of Options that can be configured from a
// file.
type optionsConfig struct {
	Capacity    int  `config:"capacity" validate:"min=0"`
	PendingLimit  Size `config:"pending_limit"`
	PoolBuffers bool `config:"pool_buffers"`
}

func newOptionsConfig(opts Options) optionsConfig {
	return optionsConfig{
		Capacity:    opts.Capacity,
		PendingLimit:  opts.PendingLimit,
		PoolBuffers: opts.PoolBuffers,
	}
}

// OptionsFromConfig unpacks cfg over DefaultOptions. A nil cfg yields the
// defaults.
func OptionsFromConfig(cfg *ucfg.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	have := newOptionsConfig(opts)
	if err := cfg.Unpack(&have); err != nil {
		return opts, errors.Wrap(err, "unpack ring options")
	}
	opts.Capacity = have.Capacity
	opts.PendingLimit = have.PendingLimit
	opts.PoolBuffers = have.PoolBuffers
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
