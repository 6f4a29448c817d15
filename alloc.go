package ringlog

import (
	"math/bits"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Allocator hands out the buffers that back pending data and entries. Every
// buffer returned by Alloc is passed to Free exactly once, with the same
// length it was allocated with.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// HeapAllocator allocates with make and leaves reclamation to the GC.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int) ([]byte, error) { return make([]byte, n), nil }

func (HeapAllocator) Free([]byte) {}

const (
	minClassShift = 6  // 64 B
	maxClassShift = 16 // 64 KiB
)

// PoolAllocator recycles buffers through one sync.Pool per power-of-two size
// class. Requests above the largest class bypass the pools.
type PoolAllocator struct {
	pools [maxClassShift - minClassShift + 1]sync.Pool
}

// NewPoolAllocator returns a ready PoolAllocator.
func NewPoolAllocator() *PoolAllocator {
	p := &PoolAllocator{}
	for i := range p.pools {
		size := 1 << (minClassShift + i)
		p.pools[i].New = func() any { return make([]byte, size) }
	}
	return p
}

// sizeClass returns the pool index serving n bytes, or -1 if n is too large.
func sizeClass(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

func (p *PoolAllocator) Alloc(n int) ([]byte, error) {
	c := sizeClass(n)
	if c < 0 {
		return make([]byte, n), nil
	}
	return p.pools[c].Get().([]byte)[:n], nil
}

// Free only takes back buffers whose capacity is exactly a class size, so
// foreign slices never end up in a pool.
func (p *PoolAllocator) Free(b []byte) {
	c := sizeClass(cap(b))
	if c < 0 || cap(b) != 1<<(minClassShift+c) {
		return
	}
	p.pools[c].Put(b[:cap(b)])
}

// LimitAllocator enforces a byte budget on top of another Allocator.
type LimitAllocator struct {
	next  Allocator
	limit int64
	used  atomic.Int64
}

// NewLimitAllocator wraps next so that at most limit bytes are outstanding.
func NewLimitAllocator(next Allocator, limit int64) *LimitAllocator {
	return &LimitAllocator{next: next, limit: limit}
}

func (l *LimitAllocator) Alloc(n int) ([]byte, error) {
	for {
		used := l.used.Load()
		if used+int64(n) > l.limit {
			return nil, errors.Wrapf(ErrNoMemory, "allocating %d bytes with %d of %d in use", n, used, l.limit)
		}
		if l.used.CompareAndSwap(used, used+int64(n)) {
			break
		}
	}
	b, err := l.next.Alloc(n)
	if err != nil {
		l.used.Sub(int64(n))
		return nil, err
	}
	return b, nil
}

func (l *LimitAllocator) Free(b []byte) {
	l.used.Sub(int64(len(b)))
	l.next.Free(b)
}

// Handoff stops counting b against the budget without freeing it. The new
// owner must later free b through the wrapped Allocator, not through l.
func (l *LimitAllocator) Handoff(b []byte) {
	l.used.Sub(int64(len(b)))
}

// InUse reports the bytes currently allocated through l.
func (l *LimitAllocator) InUse() int64 { return l.used.Load() }
