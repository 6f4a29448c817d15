package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TimestampLayout renders like strftime("%a, %d %b %Y %T %z").
const TimestampLayout = time.RFC1123Z

func timestampLine(t time.Time) []byte {
	return []byte("timestamp:" + t.Format(TimestampLayout) + "\n")
}

// injectTimestamps appends a timestamp line to the backend every interval
// until ctx ends.
func (s *Server) injectTimestamps(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := s.backend.Write(ctx, timestampLine(now)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("timestamp write failed", zap.Error(err))
			}
		}
	}
}
