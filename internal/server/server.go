// Package server provides the DHCPLens HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/dhcplens/internal/classify"
	"github.com/HerbHall/dhcplens/internal/fingerbank"
	"github.com/HerbHall/dhcplens/internal/inventory"
	"github.com/HerbHall/dhcplens/internal/parser"
	"github.com/HerbHall/dhcplens/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// unmetered paths stay out of request logs and rate limiting.
var quietPaths = []string{"/healthz", "/readyz", "/metrics"}

// Server is the DHCPLens HTTP server: log analysis on demand plus
// read access to the persisted inventory.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *zap.Logger

	parser   *parser.Parser
	engine   *classify.Engine
	store    *inventory.Store
	external *fingerbank.Client
}

// New wires routes and middleware. external may be nil when no API key
// is configured.
func New(addr string, p *parser.Parser, engine *classify.Engine, store *inventory.Store, external *fingerbank.Client, rps float64, burst int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger.Named("server"),
		parser:   p,
		engine:   engine,
		store:    store,
		external: external,
	}

	s.registerRoutes()

	// Outermost listed first. tagRequests runs before instrument so the
	// access log carries the request ID.
	handler := wrap(s.mux,
		tagRequests,
		instrument(s.logger, quietPaths),
		apiHeaders,
		throttle(rps, burst, quietPaths),
	)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
	s.mux.HandleFunc("GET /api/v1/devices/{mac}", s.handleGetDevice)
	s.mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealthz is a liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "alive",
		"version": version.Map(),
	})
}

// handleReadyz checks that the database answers.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Stats(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
