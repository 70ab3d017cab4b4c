// Package health exposes the gateway's observability surface over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoregate/scoregate/internal/gateway/quota"
)

// Status values reported by the health endpoint.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// PendingCounter reports in-flight coalesced fetches.
type PendingCounter interface {
	PendingCount() int
}

// Report is the /health response body.
type Report struct {
	Status         string       `json:"status"`
	Quota          quota.Status `json:"quota"`
	PendingFetches int          `json:"pending_fetches"`
}

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	governor *quota.Governor
	pending  PendingCounter
	server   *http.Server
}

// NewServer creates a new health server.
func NewServer(governor *quota.Governor, pending PendingCounter, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		governor: governor,
		pending:  pending,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport()
	w.Header().Set("Content-Type", "application/json")

	if report.Status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(report)
}

func (s *Server) buildReport() Report {
	qs := s.governor.GetStatus()

	status := StatusHealthy
	if qs.BackoffActive || qs.DailyUsed >= qs.DailySoftCap {
		status = StatusDegraded
	}
	if qs.DailyUsed >= qs.DailyHardCap {
		status = StatusCritical
	}

	return Report{
		Status:         status,
		Quota:          qs,
		PendingFetches: s.pending.PendingCount(),
	}
}
