package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/assembler"
	"github.com/meridianhealth/estimator/internal/config"
	"github.com/meridianhealth/estimator/internal/orchestrator"
	"github.com/meridianhealth/estimator/internal/telemetry"
	"github.com/meridianhealth/estimator/types"
)

// Server runs the HTTP surface over one Orchestrator: the public estimate
// endpoint, a liveness probe, and a separate Prometheus metrics listener,
// each tracked so WaitForShutdown can drain them together.
type Server struct {
	cfg     *config.Config
	orc     *orchestrator.Orchestrator
	metrics *telemetry.Metrics
	logger  *zap.Logger

	httpServer    *http.Server
	metricsServer *http.Server
}

// NewServer builds a Server ready to Start.
func NewServer(cfg *config.Config, orc *orchestrator.Orchestrator, metrics *telemetry.Metrics, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, orc: orc, metrics: metrics, logger: logger}
}

// Start launches the estimate API and, when a metrics port is configured,
// the metrics listener as background goroutines. It returns without waiting
// for either to bind; a listen failure is logged by its goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/estimate", s.handleEstimate)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: ":8080", Handler: mux}

	go func() {
		s.logger.Info("estimate API listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("estimate API stopped", zap.Error(err))
		}
	}()

	if s.cfg.Telemetry.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		s.metricsServer = &http.Server{Addr: addrForPort(s.cfg.Telemetry.MetricsPort), Handler: metricsMux}
		go func() {
			s.logger.Info("metrics listening", zap.String("addr", s.metricsServer.Addr))
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then drains both servers.
func (s *Server) WaitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
}

// handleEstimate is the public entry point (spec §6: "estimate(request,
// headers) -> response"): decode the request, run it through the
// orchestrator, assemble the response, and map any request-level error to
// its HTTP status (spec §7).
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Deadline.IsZero() {
		req.Deadline = time.Now().Add(s.cfg.RequestDeadline)
	}

	records, err := s.orc.Estimate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := assembler.Assemble(req, records)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	if ae, ok := err.(*apperr.Error); ok {
		status = ae.HTTPStatus()
		code = string(ae.Code)
	}
	writeJSON(w, status, map[string]string{"code": code, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func addrForPort(port int) string {
	return ":" + strconv.Itoa(port)
}
