package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/staleguard/internal/report"
)

var beaconsReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "staleguard_beacons_received_total",
		Help: "Total number of beacon payloads received",
	},
	[]string{"status"},
)

// Inserter stores incoming payloads. Satisfied by BeaconRepo.
type Inserter interface {
	Insert(ctx context.Context, p report.Payload) error
}

// Server ingests beacon payloads over HTTP.
type Server struct {
	repo   Inserter
	log    *slog.Logger
	server *http.Server
}

// NewServer creates the ingest server on the given port.
func NewServer(repo Inserter, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{
		repo: repo,
		log:  log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/v1/beacons", s.handleIngest)
	mux.HandleFunc("/healthz", s.handleHealthz)
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

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		beaconsReceived.WithLabelValues("bad_request").Inc()
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	var p report.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		beaconsReceived.WithLabelValues("bad_request").Inc()
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := s.repo.Insert(r.Context(), p); err != nil {
		beaconsReceived.WithLabelValues("error").Inc()
		s.log.Error("Failed to store beacon", "error", err)
		http.Error(w, "storage failed", http.StatusInternalServerError)
		return
	}

	beaconsReceived.WithLabelValues("ok").Inc()
	s.log.Info("Beacon stored",
		"session_id", p.SessionID,
		"retry_id", p.RetryID,
		"final_attempt", p.FinalAttempt,
	)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
