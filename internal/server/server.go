// Package server exposes the transcript store over HTTP: REST endpoints for
// reading and editing entries and a WebSocket feed of live segments.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"livescribe/internal/transcript"
)

// Server is the presentation boundary over the transcript store.
type Server struct {
	logger     *zap.Logger
	store      *transcript.Store
	threshold  atomic.Uint64 // float64 bits
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates a Server listening on addr with the given initial
// confidence threshold.
func NewServer(addr string, store *transcript.Store, threshold float64, logger *zap.Logger) *Server {
	s := &Server{
		logger: logger,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.threshold.Store(math.Float64bits(threshold))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	mux.HandleFunc("PUT /api/transcript/{index}", s.handleEdit)
	mux.HandleFunc("GET /api/threshold", s.handleGetThreshold)
	mux.HandleFunc("PUT /api/threshold", s.handleSetThreshold)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Threshold returns the current confidence threshold.
func (s *Server) Threshold() float64 {
	return math.Float64frombits(s.threshold.Load())
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("presentation server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown failed", zap.Error(err))
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	threshold := s.Threshold()
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	entries := s.store.Visible(threshold)
	if entries == nil {
		entries = []transcript.Entry{}
	}
	s.writeJSON(w, map[string]any{
		"threshold": threshold,
		"entries":   entries,
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if index < 0 || index >= s.store.Len() {
		http.Error(w, "index out of range", http.StatusNotFound)
		return
	}

	s.store.Edit(index, body.Text)
	s.logger.Debug("transcript entry edited", zap.Int("index", index))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]float64{"threshold": s.Threshold()})
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Threshold float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Threshold < 0 || body.Threshold > 1 {
		http.Error(w, "threshold must be in [0,1]", http.StatusBadRequest)
		return
	}
	s.threshold.Store(math.Float64bits(body.Threshold))
	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket streams appended segments to the client until it
// disconnects. A slow client misses segments rather than stalling the
// pipeline.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id, ch := s.store.Subscribe()
	defer s.store.Unsubscribe(id)

	s.logger.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	for entry := range ch {
		if err := conn.WriteJSON(entry); err != nil {
			s.logger.Debug("websocket client disconnected", zap.Error(err))
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
