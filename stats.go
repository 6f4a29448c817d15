package ringlog

import (
	"context"

	"go.uber.org/atomic"
)

type counters struct {
	writes        atomic.Uint64
	bytesWritten  atomic.Uint64
	reads         atomic.Uint64
	bytesRead     atomic.Uint64
	entries       atomic.Uint64
	evictions     atomic.Uint64
	allocFailures atomic.Uint64
	interrupted   atomic.Uint64
}

// Stats is a snapshot of device activity counters.
type Stats struct {
	Writes        uint64 `json:"writes"`
	BytesWritten  uint64 `json:"bytes_written"`
	Reads         uint64 `json:"reads"`
	BytesRead     uint64 `json:"bytes_read"`
	EntriesAdded  uint64 `json:"entries_added"`
	Evictions     uint64 `json:"evictions"`
	AllocFailures uint64 `json:"alloc_failures"`
	Interrupted   uint64 `json:"interrupted"`
}

// GetStats returns a snapshot of the counters without taking the device lock.
func (d *Device) GetStats() Stats {
	return Stats{
		Writes:        d.stats.writes.Load(),
		BytesWritten:  d.stats.bytesWritten.Load(),
		Reads:         d.stats.reads.Load(),
		BytesRead:     d.stats.bytesRead.Load(),
		EntriesAdded:  d.stats.entries.Load(),
		Evictions:     d.stats.evictions.Load(),
		AllocFailures: d.stats.allocFailures.Load(),
		Interrupted:   d.stats.interrupted.Load(),
	}
}

// ResetStats zeroes every activity counter.
func (d *Device) ResetStats() {
	for _, c := range []*atomic.Uint64{
		&d.stats.writes, &d.stats.bytesWritten,
		&d.stats.reads, &d.stats.bytesRead,
		&d.stats.entries, &d.stats.evictions,
		&d.stats.allocFailures, &d.stats.interrupted,
	} {
		c.Store(0)
	}
}

// State describes the ring at one instant.
type State struct {
	Capacity int   `json:"capacity"`
	Entries  int   `json:"entries"`
	Size     int64 `json:"size"`
	Pending  int   `json:"pending"`
	Full     bool  `json:"full"`
}

// State takes the device lock and reports occupancy.
func (d *Device) State(ctx context.Context) (State, error) {
	if err := d.lock(ctx, "state"); err != nil {
		return State{}, err
	}
	defer d.unlock()
	return State{
		Capacity: d.store.Capacity(),
		Entries:  d.store.Count(),
		Size:     d.store.Size(),
		Pending:  d.acc.Len(),
		Full:     d.store.Full(),
	}, nil
}
