// Package health provides a lightweight HTTP server for health checks,
// scan readiness, metrics and bankroll status.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/metrics"
)

// ScanState is the scanner's progress as reported on /ready.
type ScanState struct {
	LoadedAt time.Time
	LastScan time.Time
	Signals  int
	Failures int
	Halted   bool
	Err      error
}

// Scanner exposes scan progress and the bankroll status.
type Scanner interface {
	ScanState() ScanState
	Status() interface{}
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for the readiness endpoint.
type ReadyResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Reason       string `json:"reason,omitempty"`
	SnapshotAge  string `json:"snapshot_age,omitempty"`
	LastScan     string `json:"last_scan,omitempty"`
	Signals      int    `json:"signals"`
	ScanFailures int    `json:"scan_failures"`
	Halted       bool   `json:"halted"`
}

// Server is a lightweight HTTP server for health check endpoints.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	metricsPath string
	maxAge      time.Duration
	server      *http.Server
	logger      *logrus.Logger
	scanner     Scanner
	now         func() time.Time
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health server. A zero
// MaxSnapshotAge never reports the snapshot as stale.
type Config struct {
	ServiceName    string
	Version        string
	Commit         string
	Port           string
	MetricsPath    string
	MaxSnapshotAge time.Duration
	Logger         *logrus.Logger
	Scanner        Scanner
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		metricsPath: metricsPath,
		maxAge:      cfg.MaxSnapshotAge,
		logger:      cfg.Logger,
		scanner:     cfg.Scanner,
		now:         time.Now,
		ready:       false,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle(s.metricsPath, metrics.Handler())
	if s.scanner != nil {
		mux.HandleFunc("/bankroll", s.handleBankroll)
	}
	return mux
}

// Start starts the server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Health check server starting")
		}

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("Health check server error")
			}
		}
	}()

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("Health check server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleReady handles the /ready endpoint. The service is ready once a
// snapshot is loaded, the last rescan succeeded and the snapshot is no
// older than the configured age. A halted bankroll is still ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	response := s.readiness()

	w.Header().Set("Content-Type", "application/json")
	if response.Reason == "" {
		response.Status = "ok"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) readiness() ReadyResponse {
	response := ReadyResponse{Service: s.serviceName}
	if !s.IsReady() {
		response.Reason = "service not ready"
		return response
	}
	if s.scanner == nil {
		return response
	}

	state := s.scanner.ScanState()
	response.Signals = state.Signals
	response.ScanFailures = state.Failures
	response.Halted = state.Halted
	if !state.LastScan.IsZero() {
		response.LastScan = state.LastScan.UTC().Format(time.RFC3339)
	}

	switch {
	case state.LoadedAt.IsZero():
		response.Reason = "no snapshot loaded"
		return response
	case state.Err != nil:
		response.Reason = "last scan failed: " + state.Err.Error()
	}
	age := s.now().Sub(state.LoadedAt)
	response.SnapshotAge = age.Truncate(time.Second).String()
	if s.maxAge > 0 && age > s.maxAge && response.Reason == "" {
		response.Reason = "snapshot older than " + s.maxAge.String()
	}
	return response
}

// handleBankroll handles the /bankroll endpoint - current bankroll status.
func (s *Server) handleBankroll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.scanner.Status())
}
