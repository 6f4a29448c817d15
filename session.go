package ringlog

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session is one open handle on a Device. It carries its own stream
// position; the Device keeps no per-reader state. A Session is not safe for
// concurrent use, but any number of Sessions may share a Device.
type Session struct {
	id  string
	dev *Device
	pos int64
	ctx context.Context
}

var _ io.ReadWriteSeeker = (*Session)(nil)

// Open starts a Session at offset 0.
func (d *Device) Open() *Session {
	s := &Session{id: uuid.NewString(), dev: d, ctx: context.Background()}
	d.logger.Debug("open", zap.String("session", s.id))
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Pos returns the current stream position.
func (s *Session) Pos() int64 { return s.pos }

// WithContext returns a shallow copy of s whose blocking calls use ctx. The
// copy shares nothing with s after the call; positions advance separately.
func (s *Session) WithContext(ctx context.Context) *Session {
	c := *s
	c.ctx = ctx
	return &c
}

// Read reads from the current position and advances it. At the end of the
// stream it returns io.EOF.
func (s *Session) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := s.dev.ReadAt(s.ctx, p, s.pos)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	s.pos += int64(n)
	return n, nil
}

// Write forwards p to the device. The position is not used: records always
// go to the end of the ring.
func (s *Session) Write(p []byte) (int, error) {
	return s.dev.Write(s.ctx, p)
}

// Seek sets the position. io.SeekEnd is relative to the current stream size.
// Positions past the end are allowed and read as end of stream.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		size, err := s.dev.Size(s.ctx)
		if err != nil {
			return s.pos, err
		}
		base = size
	default:
		return s.pos, errors.Wrapf(ErrInvalidArgument, "whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return s.pos, errors.Wrapf(ErrInvalidArgument, "seek to negative position %d", pos)
	}
	s.pos = pos
	return pos, nil
}

// SeekTo moves the position to byte offsetInEntry of the entryIndex-th live
// entry, counting from the oldest.
func (s *Session) SeekTo(entryIndex, offsetInEntry int) (int64, error) {
	pos, err := s.dev.LinearOffset(s.ctx, entryIndex, offsetInEntry)
	if err != nil {
		return s.pos, err
	}
	s.pos = pos
	s.dev.logger.Debug("seekto",
		zap.String("session", s.id),
		zap.Int("entry", entryIndex),
		zap.Int("offset", offsetInEntry),
		zap.Int64("pos", pos))
	return pos, nil
}

// Close ends the session. Pending partial records stay in the device.
func (s *Session) Close() error {
	s.dev.logger.Debug("release", zap.String("session", s.id))
	return nil
}
