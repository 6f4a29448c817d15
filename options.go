package ringlog

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxWriteOperations is the default number of entry slots in a ring.
const MaxWriteOperations = 10

// Terminator closes a record; a write containing it completes the pending
// entry.
const Terminator = '\n'

// Options configures a Device.
//
//   - Capacity:   number of entry slots (0 = MaxWriteOperations)
//   - PendingLimit: byte budget for the buffer of an incomplete record
//     (0 = unlimited); a write that would grow it beyond the budget fails
//     with ErrNoMemory. Completed records do not count.
//   - PoolBuffers: recycle released entry buffers through size-classed pools
//
// Allocator and Logger cannot be set from configuration files; see
// OptionsFromConfig.
type Options struct {
	Capacity    int
	PendingLimit  Size
	PoolBuffers bool

	Allocator Allocator
	Logger    *zap.Logger
}

// DefaultOptions returns the options used by NewDevice.
func DefaultOptions() Options {
	return Options{
		Capacity:    MaxWriteOperations,
		PoolBuffers: true,
	}
}

// Validate rejects options no Device can be built from.
func (o *Options) Validate() error {
	if o.Capacity < 0 {
		return errors.Wrapf(ErrInvalidArgument, "capacity must not be negative, got %d", o.Capacity)
	}
	if o.PendingLimit < 0 {
		return errors.Wrapf(ErrInvalidArgument, "pending limit must not be negative, got %d", o.PendingLimit)
	}
	return nil
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.Capacity == 0 {
		o.Capacity = MaxWriteOperations
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Allocator == nil {
		if o.PoolBuffers {
			o.Allocator = NewPoolAllocator()
		} else {
			o.Allocator = HeapAllocator{}
		}
	}
	return o
}

// pendingAllocator is the allocator for the pending buffer: the shared
// allocator, under PendingLimit when one is set.
func (o Options) pendingAllocator() Allocator {
	if o.PendingLimit > 0 {
		return NewLimitAllocator(o.Allocator, int64(o.PendingLimit))
	}
	return o.Allocator
}
