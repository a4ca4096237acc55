// Package health exposes HTTP endpoints for monitoring the agent.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/staleguard/internal/core/guard"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Server serves health and metrics for one guard.
type Server struct {
	guard  *guard.Guard
	server *http.Server
}

// NewServer creates a health server on the given port.
func NewServer(g *guard.Guard, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		guard: g,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// status derives an aggregate status from the guard snapshot: waiting on a
// scheduled reload is degraded, a rendered fallback is critical.
func (s *Server) status() (Status, guard.Snapshot) {
	snap := s.guard.Snapshot()
	switch {
	case snap.IsFallbackShown:
		return StatusCritical, snap
	case snap.IsWaiting:
		return StatusDegraded, snap
	default:
		return StatusHealthy, snap
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, _ := s.status()

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	status, snap := s.status()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status Status `json:"status"`
		guard.Snapshot
	}{Status: status, Snapshot: snap})
}
