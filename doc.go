// Package ringlog provides a bounded in-memory log of newline-terminated
// records that reads like one contiguous byte stream.
//
// Writes are accumulated until a '\n' arrives; the completed record then
// occupies one slot of a fixed-capacity ring, evicting the oldest record when
// the ring is full. Reads address the concatenation of the live records by
// absolute offset.
//
// The library is organised into several files:
//
//	options.go      – Options & defaults
//	config.go       – go-ucfg unpacking of Options
//	alloc.go        – buffer allocators (heap, pooled, byte budget)
//	ring.go         – Store: slots, cursors, eviction, offset lookup
//	accumulator.go  – pending buffer for partial writes
//	device.go       – locked Device read/write
//	session.go      – per-open position, io.ReadWriteSeeker
//	head_tail.go    – cursor and entry snapshots
//	stats.go        – activity counters and occupancy
//	flush_close.go  – teardown
//	errors.go       – error values
package ringlog
