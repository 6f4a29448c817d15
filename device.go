package ringlog

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Device presents a Store as one byte stream: writes are accumulated into
// records, reads address the concatenation of live records by offset.
//
// All operations are safe for concurrent use. A single lock serializes them
// and waiting for it can be abandoned through the context.
type Device struct {
	store   *Store
	acc     *Accumulator
	sem     *semaphore.Weighted
	closed  bool
	options Options
	logger  *zap.Logger

	stats counters
}

// NewDevice creates a Device with DefaultOptions.
func NewDevice() *Device {
	d, err := NewDeviceWithOptions(DefaultOptions())
	if err != nil {
		// DefaultOptions always validate.
		panic(err)
	}
	return d
}

// NewDeviceWithOptions creates a Device with custom options.
func NewDeviceWithOptions(opts Options) (*Device, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	logger := opts.Logger.Named("ringlog")
	logger.Debug("device created",
		zap.Int("capacity", opts.Capacity),
		zap.Stringer("pending_limit", opts.PendingLimit))
	return &Device{
		store:   NewStore(opts.Capacity, opts.Allocator, logger),
		acc:     NewAccumulator(opts.pendingAllocator()),
		sem:     semaphore.NewWeighted(1),
		options: opts,
		logger:  logger,
	}, nil
}

// lock acquires the device lock for op. On success the caller must call
// unlock on every path.
func (d *Device) lock(ctx context.Context, op string) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.stats.interrupted.Inc()
		return &InterruptedError{Op: op, Err: err}
	}
	if d.closed {
		d.sem.Release(1)
		return errors.Wrap(ErrClosed, op)
	}
	return nil
}

func (d *Device) unlock() { d.sem.Release(1) }

// Write appends p to the pending record. When p contains the terminator the
// whole pending buffer, including any bytes after the terminator, becomes a
// new entry. Write accepts all of p or, on allocation failure, none of it.
func (d *Device) Write(ctx context.Context, p []byte) (int, error) {
	if err := d.lock(ctx, "write"); err != nil {
		return 0, err
	}
	defer d.unlock()

	if len(p) == 0 {
		return 0, nil
	}
	if err := d.acc.Append(p); err != nil {
		d.stats.allocFailures.Inc()
		d.logger.Warn("write rejected", zap.Int("bytes", len(p)), zap.Error(err))
		return 0, err
	}
	d.stats.writes.Inc()
	d.stats.bytesWritten.Add(uint64(len(p)))

	if d.acc.Complete(len(p)) {
		slot := d.store.in
		entry := d.acc.Take()
		size := entry.Len()
		evicted := d.store.AddEntry(entry)
		d.stats.entries.Inc()
		if evicted > 0 {
			d.stats.evictions.Add(uint64(evicted))
		}
		d.logger.Debug("entry added",
			zap.Int("slot", slot),
			zap.String("size", humanize.IBytes(uint64(size))),
			zap.Bool("evicted", evicted > 0))
	}
	return len(p), nil
}

// ReadAt copies bytes of the logical stream starting at off into p. A read
// never crosses an entry boundary, so n may be less than len(p) even when
// more data follows. n == 0 with a nil error means off is at or beyond the
// end of the stream, or negative: both address no live byte.
func (d *Device) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := d.lock(ctx, "read"); err != nil {
		return 0, err
	}
	defer d.unlock()

	entry, inEntry, ok := d.store.FindEntryForOffset(off)
	if !ok {
		return 0, nil
	}
	n := copy(p, entry.Bytes()[inEntry:])
	d.stats.reads.Inc()
	d.stats.bytesRead.Add(uint64(n))
	return n, nil
}

// Size returns the length of the logical stream.
func (d *Device) Size(ctx context.Context) (int64, error) {
	if err := d.lock(ctx, "size"); err != nil {
		return 0, err
	}
	defer d.unlock()
	return d.store.Size(), nil
}

// LinearOffset returns the stream offset of byte offsetInEntry of the
// entryIndex-th live entry (0 = oldest).
func (d *Device) LinearOffset(ctx context.Context, entryIndex, offsetInEntry int) (int64, error) {
	if err := d.lock(ctx, "seekto"); err != nil {
		return 0, err
	}
	defer d.unlock()
	return d.store.LinearOffset(entryIndex, offsetInEntry)
}

// Mark is a position in everything the Device has ever stored. Unlike a
// stream offset it stays on the same byte when older entries are evicted.
type Mark int64

// MarkAt converts the stream offset off into a Mark.
func (d *Device) MarkAt(ctx context.Context, off int64) (Mark, error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "negative offset %d", off)
	}
	if err := d.lock(ctx, "mark"); err != nil {
		return 0, err
	}
	defer d.unlock()
	return Mark(d.store.Dropped() + off), nil
}

// ReadMark reads from m like ReadAt. If the bytes at m were already evicted
// the read starts at the oldest live byte instead. It returns the Mark of the
// first byte read, so the caller continues from start + n.
func (d *Device) ReadMark(ctx context.Context, p []byte, m Mark) (n int, start Mark, err error) {
	if err := d.lock(ctx, "read"); err != nil {
		return 0, m, err
	}
	defer d.unlock()

	dropped := d.store.Dropped()
	if int64(m) < dropped {
		m = Mark(dropped)
	}
	entry, inEntry, ok := d.store.FindEntryForOffset(int64(m) - dropped)
	if !ok {
		return 0, m, nil
	}
	n = copy(p, entry.Bytes()[inEntry:])
	d.stats.reads.Inc()
	d.stats.bytesRead.Add(uint64(n))
	return n, m, nil
}

// Options returns the options the Device was built with, defaults applied.
func (d *Device) Options() Options { return d.options }
