package ringlog

import (
	"context"

	"github.com/pkg/errors"
)

// ErrEmpty is returned by Head and Tail when no entry is live.
var ErrEmpty = errors.New("ring empty")

// Cursors returns the slot the next entry goes to (in) and the slot of the
// oldest live entry (out).
func (d *Device) Cursors(ctx context.Context) (in, out int, err error) {
	if err := d.lock(ctx, "cursors"); err != nil {
		return 0, 0, err
	}
	defer d.unlock()
	return d.store.in, d.store.out, nil
}

// Head returns a copy of the newest entry.
func (d *Device) Head(ctx context.Context) ([]byte, error) {
	return d.entryCopy(ctx, "head", func(n int) int { return n - 1 })
}

// Tail returns a copy of the oldest entry.
func (d *Device) Tail(ctx context.Context) ([]byte, error) {
	return d.entryCopy(ctx, "tail", func(int) int { return 0 })
}

func (d *Device) entryCopy(ctx context.Context, op string, pick func(n int) int) ([]byte, error) {
	if err := d.lock(ctx, op); err != nil {
		return nil, err
	}
	defer d.unlock()
	n := d.store.Count()
	if n == 0 {
		return nil, ErrEmpty
	}
	return append([]byte(nil), d.store.slot(pick(n)).Bytes()...), nil
}

// Entries returns copies of all live entries, oldest first.
func (d *Device) Entries(ctx context.Context) ([][]byte, error) {
	if err := d.lock(ctx, "entries"); err != nil {
		return nil, err
	}
	defer d.unlock()
	out := make([][]byte, 0, d.store.Count())
	d.store.Range(func(_ int, e *Entry) bool {
		out = append(out, append([]byte(nil), e.Bytes()...))
		return true
	})
	return out, nil
}
