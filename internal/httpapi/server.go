// Package httpapi exposes a ring device over HTTP: occupancy and counters,
// a snapshot of the live entries and a websocket that tails the stream.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	ringlog "github.com/luhtfiimanal/go-ringlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server serves the inspection API for Dev. PollInterval is how often a
// websocket tail checks for new bytes; zero means 200ms.
type Server struct {
	Dev          *ringlog.Device
	Logger       *zap.Logger
	PollInterval time.Duration
}

// Router returns the handler for every endpoint of the API.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/entries", s.handleEntries)
	mux.Handle("/ws/tail", &tailHandler{
		dev:      s.Dev,
		upgrader: upgrader,
		poll:     s.pollInterval(),
		logger:   s.logger(),
	})
	return mux
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) pollInterval() time.Duration {
	if s.PollInterval <= 0 {
		return 200 * time.Millisecond
	}
	return s.PollInterval
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state, err := s.Dev.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    state,
		"counters": s.Dev.GetStats(),
	})
}

type entriesResponse struct {
	Entries []string `json:"entries"`
	Size    int64    `json:"size"`
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.Dev.Entries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h := xxhash.New()
	resp := entriesResponse{Entries: make([]string, len(entries))}
	for i, e := range entries {
		h.Write(e)
		resp.Entries[i] = string(e)
		resp.Size += int64(len(e))
	}
	etag := fmt.Sprintf(`"%016x"`, h.Sum64())
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ringlog.ErrInterrupted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ringlog.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, ringlog.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type tailHandler struct {
	dev      *ringlog.Device
	upgrader websocket.Upgrader
	poll     time.Duration
	logger   *zap.Logger
}

// ServeHTTP streams the device from ?from=<offset> (default 0) as binary
// messages, one per read, polling for new data until the client goes away.
// Progress is kept as a ringlog.Mark, so eviction of older entries does not
// shift the tail; bytes evicted before they were sent are skipped.
func (h *tailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var from int64
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "bad from offset", http.StatusBadRequest)
			return
		}
		from = n
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	mark, err := h.dev.MarkAt(ctx, from)
	if err != nil {
		return
	}
	logger := h.logger.With(zap.String("peer", r.RemoteAddr))
	logger.Debug("tail attached", zap.Int64("from", from))

	// The read pump only notices the client closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	buf := make([]byte, 4096)
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()
	for {
		for {
			n, start, err := h.dev.ReadMark(ctx, buf, mark)
			if err != nil {
				logger.Debug("tail read stopped", zap.Error(err))
				return
			}
			if start > mark {
				logger.Debug("tail fell behind eviction", zap.Int64("skipped", int64(start-mark)))
			}
			mark = start + ringlog.Mark(n)
			if n == 0 {
				break
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			logger.Debug("tail detached", zap.Int64("mark", int64(mark)))
			return
		case <-ticker.C:
		}
	}
}
