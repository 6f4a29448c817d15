package ringlog

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for out-of-range offsets, entry indexes
	// or seek modes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoMemory is returned when the allocator refuses a buffer. State is
	// left exactly as it was before the failing call.
	ErrNoMemory = errors.New("out of memory")

	// ErrInterrupted is matched by every *InterruptedError.
	ErrInterrupted = errors.New("lock acquisition interrupted")

	// ErrClosed is returned by every Device operation after Close.
	ErrClosed = errors.New("device closed")
)

// InterruptedError reports that waiting for the device lock was abandoned
// because the caller's context ended. The operation did not run and may be
// retried.
type InterruptedError struct {
	Op  string
	Err error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrInterrupted, e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

func (e *InterruptedError) Is(target error) bool { return target == ErrInterrupted }

// Temporary marks the error as retryable.
func (e *InterruptedError) Temporary() bool { return true }

// CorruptionError describes ring cursors that contradict the full flag. It is
// only ever raised through panic.
type CorruptionError struct {
	In, Out  int
	Full     bool
	Capacity int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("ring corrupted: full=%t in=%d out=%d capacity=%d", e.Full, e.In, e.Out, e.Capacity)
}
