package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shipmux/shipmux/internal/gateway"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipping gateway.
type Server struct {
	port    int
	gateway *gateway.Gateway
	logger  *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, gw *gateway.Gateway, logger *otelzap.Logger) *Server {
	return &Server{
		port:    cfg.Port,
		gateway: gw,
		logger:  logger,
	}
}

// Handler builds the route table. Exposed separately from Run so tests
// can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/carriers", s.handleCarriers)
	mux.HandleFunc("POST /api/quotes", s.handleQuotes)
	mux.HandleFunc("POST /api/orders/{carrier}", s.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{carrier}/{id}/label", s.handleGetLabel)
	mux.HandleFunc("POST /api/orders/{carrier}/{id}/cancel", s.handleCancelOrder)

	mux.HandleFunc("GET /admin/quotas", s.handleListQuotas)
	mux.HandleFunc("GET /admin/quotas/{provider}", s.handleGetQuota)
	mux.HandleFunc("PUT /admin/quotas/{provider}", s.handlePutQuota)
	mux.HandleFunc("GET /admin/addressbook/stats", s.handleAddressStats)
	mux.HandleFunc("POST /admin/addressbook/cleanup", s.handleAddressCleanup)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
