// Package server provides the local monitor: health, an MJPEG preview of
// the annotated frames and a websocket feed of hand observations.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/hand"
)

// ShutdownTimeout bounds Close.
const ShutdownTimeout = 2 * time.Second

// Status is the tracker state reported by /api/health.
type Status struct {
	Source  string `json:"source"`
	Mode    string `json:"mode"`
	Phase   string `json:"phase"`
	Frames  int    `json:"frames"`
	Enabled bool   `json:"enabled"`
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// Status, if set, is included in health responses.
	Status func() Status
	Log    *zap.Logger
}

// Server is the monitor HTTP server. It is also a frame sink and an
// observation broadcaster for the tracking loop.
type Server struct {
	config       Config
	mux          *http.ServeMux
	start        time.Time
	log          *zap.Logger
	stream       *StreamHandler
	observations *ObservationsHandler

	mu   sync.Mutex
	http *http.Server
	addr net.Addr
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		config:       config,
		mux:          http.NewServeMux(),
		start:        time.Now(),
		log:          log,
		stream:       NewStreamHandler(),
		observations: NewObservationsHandler(log),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/stream", s.stream)
	s.mux.Handle("/api/observations", s.observations)

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Publish hands an annotated frame to the MJPEG stream.
func (s *Server) Publish(frame *gocv.Mat) {
	s.stream.Publish(frame)
}

// Broadcast pushes observations to websocket clients.
func (s *Server) Broadcast(observations []hand.Observation) {
	s.observations.Broadcast(observations)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.observations.Clients(),
	}
	if s.config.Status != nil {
		response["tracker"] = s.config.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.http = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("monitor server stopped", zap.Error(err))
		}
	}()

	s.log.Info("monitor listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Shutdown stops the server and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.observations.CloseAll()

	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Close shuts the server down within ShutdownTimeout.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}
