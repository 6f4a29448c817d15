package server

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	ringlog "github.com/luhtfiimanal/go-ringlog"
)

// Backend stores what clients send and replays it to them.
type Backend interface {
	// Write appends one or more complete lines.
	Write(ctx context.Context, p []byte) (int, error)
	// NewReader returns a reader over everything stored so far, from the
	// beginning.
	NewReader(ctx context.Context) (io.ReadCloser, error)
	// Close releases the backend. Stored data is discarded.
	Close() error
}

// NewBackend builds the backend selected by cfg.
func NewBackend(cfg Config, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case BackendRing:
		opts, err := cfg.RingOptions()
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
		dev, err := ringlog.NewDeviceWithOptions(opts)
		if err != nil {
			return nil, err
		}
		return &DeviceBackend{Device: dev}, nil
	case BackendFile:
		return NewFileBackend(cfg.DataFile)
	}
	return nil, errors.Errorf("unknown backend %q", cfg.Backend)
}

// DeviceBackend keeps the most recent records in a ring device. Each reader
// is its own device session.
type DeviceBackend struct {
	Device *ringlog.Device
}

func (b *DeviceBackend) Write(ctx context.Context, p []byte) (int, error) {
	return b.Device.Write(ctx, p)
}

func (b *DeviceBackend) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return b.Device.Open().WithContext(ctx), nil
}

func (b *DeviceBackend) Close() error { return b.Device.Close() }

// FileBackend appends to a flat file guarded by a mutex. The file is removed
// on Close.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend truncates or creates path.
func NewFileBackend(path string) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create data file %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, "close data file %s", path)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the data file location.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Write(_ context.Context, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s for append", b.path)
	}
	n, err := f.Write(p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, errors.Wrapf(err, "append to %s", b.path)
}

// NewReader snapshots the current file length so that lines appended while
// the reader is drained are not included.
func (b *FileBackend) NewReader(context.Context) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", b.path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", b.path)
	}
	return &limitedFile{Reader: io.LimitReader(f, fi.Size()), f: f}, nil
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", b.path)
	}
	return nil
}

type limitedFile struct {
	io.Reader
	f *os.File
}

func (l *limitedFile) Close() error { return l.f.Close() }
