package server

import (
	"context"
	"net"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sys/unix"
)

// listen binds cfg.Listen with SO_REUSEADDR so a restarted server can bind
// while old connections linger in TIME_WAIT.
func listen(ctx context.Context, cfg Config, logger *zap.Logger) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(ctx, "tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}
	logger.Info("listening", zap.Stringer("addr", ln.Addr()))
	if cfg.MaxConnections > 0 {
		logger.Info("connection limit set", zap.Int("max_connections", cfg.MaxConnections))
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}
	return ln, nil
}

func reuseAddr(_, _ string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return serr
}
