package ringlog

import "bytes"

// Accumulator collects bytes from partial writes until a record is complete.
// Like Store it does no locking.
type Accumulator struct {
	pending []byte
	alloc   Allocator
}

// NewAccumulator returns an empty Accumulator drawing buffers from alloc.
func NewAccumulator(alloc Allocator) *Accumulator {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	return &Accumulator{alloc: alloc}
}

// Len returns the number of pending bytes.
func (a *Accumulator) Len() int { return len(a.pending) }

// Append grows the pending buffer by p. The old buffer is only replaced once
// the new one is allocated and filled, so a failed Append changes nothing.
func (a *Accumulator) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	buf, err := a.alloc.Alloc(len(a.pending) + len(p))
	if err != nil {
		return err
	}
	n := copy(buf, a.pending)
	copy(buf[n:], p)
	if a.pending != nil {
		a.alloc.Free(a.pending)
	}
	a.pending = buf
	return nil
}

// Complete reports whether the last n pending bytes contain the terminator.
// Bytes before them never do, since the buffer is drained on every
// terminator.
func (a *Accumulator) Complete(n int) bool {
	if n > len(a.pending) {
		n = len(a.pending)
	}
	return bytes.IndexByte(a.pending[len(a.pending)-n:], Terminator) >= 0
}

// handoffer is implemented by allocators that track ownership, such as
// LimitAllocator.
type handoffer interface {
	Handoff(b []byte)
}

// Take moves the pending buffer into a new Entry and resets the Accumulator.
// No bytes are copied. If the allocator tracks ownership the buffer is
// handed off, so it no longer counts against the Accumulator.
func (a *Accumulator) Take() Entry {
	if h, ok := a.alloc.(handoffer); ok && a.pending != nil {
		h.Handoff(a.pending)
	}
	e := NewEntry(a.pending)
	a.pending = nil
	return e
}

// Close releases a non-empty pending buffer.
func (a *Accumulator) Close() {
	if a.pending != nil {
		a.alloc.Free(a.pending)
		a.pending = nil
	}
}
