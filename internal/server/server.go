// Package server implements aesdsocket: a TCP service that stores every
// newline-terminated packet it receives and answers each one with the full
// stored content.
package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Server accepts connections and serves each on its own goroutine.
type Server struct {
	cfg     Config
	backend Backend
	logger  *zap.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New returns a Server storing packets in backend.
func New(cfg Config, backend Backend, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		backend: backend,
		logger:  logger.Named("aesdsocket"),
		conns:   make(map[net.Conn]struct{}),
	}
	if cfg.AcceptRate > 0 {
		burst := int(cfg.AcceptRate)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}
	return s, nil
}

// ListenAndServe listens on cfg.Listen and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := listen(ctx, s.cfg, s.logger)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Listen)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and every
// open connection and waits for their handlers. It returns nil on a
// requested shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		s.closeConns()
		return nil
	})
	if s.cfg.TimestampInterval > 0 {
		g.Go(func() error { return s.injectTimestamps(gctx, s.cfg.TimestampInterval) })
	}
	g.Go(func() error {
		for {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return nil
				}
			}
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					s.logger.Warn("accept failed, retrying", zap.Error(err))
					continue
				}
				return errors.Wrap(err, "accept")
			}
			if !s.track(conn) {
				conn.Close()
				return nil
			}
			g.Go(func() error {
				defer s.untrack(conn)
				s.handle(gctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

// track registers conn; it reports false once shutdown has begun.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

// handle reads packets from conn. Every completed line is stored and
// followed by a replay of the whole backend. Bytes after the last newline
// wait for the next read; whatever is incomplete when the client closes is
// dropped.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	s.logger.Info("Accepted connection from " + peer)
	defer s.logger.Info("Closed connection from " + peer)

	var packet []byte
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			packet = append(packet, buf[:n]...)
			if end := bytes.LastIndexByte(packet, '\n'); end >= 0 {
				if err := s.store(ctx, packet[:end+1]); err != nil {
					s.logger.Error("store packet failed", zap.String("peer", peer), zap.Error(err))
					return
				}
				packet = append(packet[:0], packet[end+1:]...)
				if err := s.replay(ctx, conn, buf); err != nil {
					s.logger.Warn("replay failed", zap.String("peer", peer), zap.Error(err))
					return
				}
			}
		}
		if rerr != nil {
			if len(packet) > 0 {
				s.logger.Debug("dropping incomplete packet", zap.String("peer", peer), zap.Int("bytes", len(packet)))
			}
			if rerr != io.EOF && ctx.Err() == nil {
				s.logger.Warn("receive failed", zap.String("peer", peer), zap.Error(rerr))
			}
			return
		}
	}
}

func (s *Server) store(ctx context.Context, p []byte) error {
	_, err := s.backend.Write(ctx, p)
	return err
}

func (s *Server) replay(ctx context.Context, conn net.Conn, buf []byte) error {
	r, err := s.backend.NewReader(ctx)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.CopyBuffer(conn, r, buf)
	return err
}
