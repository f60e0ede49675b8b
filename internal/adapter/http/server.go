package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/telemetry"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
}

// Server represents the HTTP server
type Server struct {
	config  ServerConfig
	router  *mux.Router
	server  *http.Server
	logger  logger.Logger
	metrics *telemetry.HTTPMetrics
}

// NewServer creates a new HTTP server with all routes registered
func NewServer(
	config ServerConfig,
	syncHandler *SyncHandler,
	metricsHandler *MetricsHandler,
	httpMetrics *telemetry.HTTPMetrics,
	log logger.Logger,
) *Server {
	s := &Server{
		config:  config,
		router:  mux.NewRouter(),
		logger:  log,
		metrics: httpMetrics,
	}

	s.setupMiddleware()
	s.setupRoutes(syncHandler, metricsHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(correlationMiddleware)
	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(loggingMiddleware(s.logger, s.metrics))
	s.router.Use(corsMiddleware)
}

func (s *Server) setupRoutes(syncHandler *SyncHandler, metricsHandler *MetricsHandler) {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	if s.config.MetricsPath != "" {
		s.router.Handle(s.config.MetricsPath, promhttp.Handler()).Methods("GET")
	}

	syncHandler.RegisterRoutes(s.router)
	metricsHandler.RegisterRoutes(s.router)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Service is healthy", map[string]interface{}{
		"service":   "agentpulse",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{
		"address": s.server.Addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
