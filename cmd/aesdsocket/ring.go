package main

import (
	"github.com/elastic/go-ucfg"
	"github.com/pkg/errors"

	"github.com/luhtfiimanal/go-ringlog/internal/server"
)

// setRingCapacity overrides ring.capacity while keeping the rest of the ring
// section from the config file.
func setRingCapacity(cfg *server.Config, capacity int) error {
	if capacity < 0 {
		return errors.Errorf("capacity must not be negative, got %d", capacity)
	}
	ring := cfg.Ring
	if ring == nil {
		ring = ucfg.New()
	}
	if err := ring.SetInt("capacity", -1, int64(capacity)); err != nil {
		return errors.Wrap(err, "set ring capacity")
	}
	cfg.Ring = ring
	return nil
}
