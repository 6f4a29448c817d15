package ringlog

import (
	"context"

	"go.uber.org/zap"
)

// Close tears the device down: every live entry and the pending buffer are
// released exactly once. Close waits for in-flight operations; afterwards all
// operations, including Close, return ErrClosed.
func (d *Device) Close() error {
	if err := d.lock(context.Background(), "close"); err != nil {
		return err
	}
	defer d.unlock()

	entries, pending := d.store.Count(), d.acc.Len()
	d.store.Close()
	d.acc.Close()
	d.closed = true
	d.logger.Debug("device closed", zap.Int("entries", entries), zap.Int("pending", pending))
	return nil
}
