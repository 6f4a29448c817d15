package ringlog

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Entry is one complete record held by a Store slot. The Store owns data from
// AddEntry until the entry is evicted or the Store is closed.
type Entry struct {
	data []byte
}

// NewEntry wraps b. Ownership of b moves to whoever stores the Entry.
func NewEntry(b []byte) Entry { return Entry{data: b} }

// Len returns the entry size in bytes.
func (e *Entry) Len() int { return len(e.data) }

// Bytes exposes the entry contents. The slice is only valid while the caller
// holds the lock guarding the Store.
func (e *Entry) Bytes() []byte { return e.data }

// Store is a fixed-capacity ring of entries. Adding to a full ring evicts the
// oldest entry. Store does no locking of its own.
//
// in is the next slot to write, out the oldest live slot. in == out is
// ambiguous and full tells the two cases apart.
type Store struct {
	slots []Entry
	in    int
	out   int
	full  bool

	// dropped counts bytes evicted since the Store was created.
	dropped int64

	alloc  Allocator
	logger *zap.Logger
}

// NewStore returns an empty Store with capacity slots. Released entries go
// back to alloc.
func NewStore(capacity int, alloc Allocator, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = MaxWriteOperations
	}
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		slots:  make([]Entry, capacity),
		alloc:  alloc,
		logger: logger,
	}
}

// Capacity returns the number of slots.
func (s *Store) Capacity() int { return len(s.slots) }

// Full reports whether every slot holds a live entry.
func (s *Store) Full() bool { return s.full }

// Count returns the number of live entries.
func (s *Store) Count() int {
	n := len(s.slots)
	switch {
	case s.full:
		return n
	case s.in >= s.out:
		return s.in - s.out
	default:
		return n - s.out + s.in
	}
}

// slot maps a logical index (0 = oldest) to a slot.
func (s *Store) slot(i int) *Entry {
	return &s.slots[(s.out+i)%len(s.slots)]
}

// Size returns the length of the logical stream.
func (s *Store) Size() int64 {
	var total int64
	for i, n := 0, s.Count(); i < n; i++ {
		total += int64(s.slot(i).Len())
	}
	return total
}

// Dropped returns the number of bytes evicted so far. Added to an offset in
// the logical stream it gives a position that eviction does not move.
func (s *Store) Dropped() int64 { return s.dropped }

// Range calls fn for each live entry, oldest first, until fn returns false.
func (s *Store) Range(fn func(i int, e *Entry) bool) {
	for i, n := 0, s.Count(); i < n; i++ {
		if !fn(i, s.slot(i)) {
			return
		}
	}
}

// FindEntryForOffset locates the byte at off in the logical stream. It
// returns the entry holding it and the offset inside that entry, or false
// when off is negative or at/after the end of the stream.
func (s *Store) FindEntryForOffset(off int64) (*Entry, int, bool) {
	if off < 0 {
		return nil, 0, false
	}
	for i, n := 0, s.Count(); i < n; i++ {
		e := s.slot(i)
		if off < int64(e.Len()) {
			return e, int(off), true
		}
		off -= int64(e.Len())
	}
	return nil, 0, false
}

// AddEntry stores e in the next slot and returns how many entries were
// evicted to make room (0 or 1). The evicted entry is released before its
// slot is reused.
//
// A full ring whose cursors differ means the Store was mutated without the
// lock; AddEntry panics with *CorruptionError instead of writing.
func (s *Store) AddEntry(e Entry) int {
	if s.full && s.in != s.out {
		err := &CorruptionError{In: s.in, Out: s.out, Full: s.full, Capacity: len(s.slots)}
		s.logger.Error("ring buffer marked full with diverging cursors",
			zap.Int("in", s.in), zap.Int("out", s.out), zap.Int("capacity", len(s.slots)))
		panic(err)
	}

	evicted := 0
	wasFull := s.full
	if wasFull {
		s.dropped += int64(s.slots[s.in].Len())
		s.release(&s.slots[s.in])
		evicted = 1
	}

	s.slots[s.in] = e
	s.in = (s.in + 1) % len(s.slots)

	if wasFull {
		s.out = s.in
	} else if s.in == s.out {
		s.full = true
	}
	return evicted
}

// LinearOffset converts an (entry index, offset in entry) pair into an offset
// in the logical stream. Both must address an existing byte.
func (s *Store) LinearOffset(entryIndex, offsetInEntry int) (int64, error) {
	n := s.Count()
	if entryIndex < 0 || entryIndex >= n {
		return 0, errors.Wrapf(ErrInvalidArgument, "entry %d out of range (%d live)", entryIndex, n)
	}
	var off int64
	for i := 0; i < entryIndex; i++ {
		off += int64(s.slot(i).Len())
	}
	size := s.slot(entryIndex).Len()
	if offsetInEntry < 0 || offsetInEntry >= size {
		return 0, errors.Wrapf(ErrInvalidArgument, "offset %d out of range for entry %d of %d bytes", offsetInEntry, entryIndex, size)
	}
	return off + int64(offsetInEntry), nil
}

func (s *Store) release(e *Entry) {
	if e.data != nil {
		s.alloc.Free(e.data)
	}
	*e = Entry{}
}

// Reset forgets all entries without releasing them.
func (s *Store) Reset() {
	for i := range s.slots {
		s.slots[i] = Entry{}
	}
	s.in, s.out, s.full = 0, 0, false
}

// Close releases every live entry once and leaves the Store empty. Calling
// Close again releases nothing.
func (s *Store) Close() {
	for i, n := 0, s.Count(); i < n; i++ {
		s.release(s.slot(i))
	}
	s.Reset()
}
