package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/etl"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/raaihank/pii-redactor/internal/ratelimit"
	"github.com/raaihank/pii-redactor/internal/websocket"
)

// Version is reported by /info and the version command
var Version = "0.1.0"

const statusInterval = 30 * time.Second

// Server exposes the redactor over HTTP
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	detector  atomic.Pointer[privacy.Detector]
	pipeline  *etl.Pipeline
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	startTime time.Time

	totalRequests   atomic.Int64
	totalDetections atomic.Int64
}

// New creates a new server instance. m may be nil.
func New(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Server, error) {
	detector, err := privacy.New(cfg.Privacy, log.WithComponent("privacy"))
	if err != nil {
		return nil, fmt.Errorf("failed to create privacy detector: %w", err)
	}

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		limiter:   ratelimit.New(cfg.Server.RateLimit),
		metrics:   m,
		router:    mux.NewRouter(),
		wsHub:     websocket.NewHub(cfg.WebSocket, log.Logger),
		startTime: time.Now(),
	}
	server.detector.Store(detector)
	server.wsHub.OnClientsChanged(m.SetWSClients)
	server.wsHub.TrustProxy(cfg.Server.TrustProxy)

	server.pipeline = etl.NewPipeline(server, nil, m, &etl.Config{
		BatchSize:   cfg.Pipeline.BatchSize,
		WorkerCount: cfg.Pipeline.WorkerCount,
	}, log.WithComponent("pipeline").Logger)

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodyLimitMiddleware)
	api.HandleFunc("/redact", s.handleRedact).Methods(http.MethodPost)
	api.HandleFunc("/redact/batch", s.handleRedactBatch).Methods(http.MethodPost)
}

// Process redacts a record with the current detector
func (s *Server) Process(rec privacy.Record) privacy.ProcessResult {
	return s.detector.Load().Process(rec)
}

// Policy returns the current detector's policy
func (s *Server) Policy() privacy.Policy {
	return s.detector.Load().Policy()
}

// Reload swaps in a detector built from cfg. In-flight requests finish with
// the detector they started with.
func (s *Server) Reload(cfg *config.Config) error {
	detector, err := privacy.New(cfg.Privacy, s.logger.WithComponent("privacy"))
	if err != nil {
		return fmt.Errorf("failed to rebuild privacy detector: %w", err)
	}
	s.detector.Store(detector)

	s.logger.Info("Privacy policy reloaded",
		zap.Int("combination_threshold", cfg.Privacy.CombinationThreshold))
	return nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is canceled or listening fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting redactor server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("websocket", s.config.WebSocket.Enabled),
		zap.Bool("rate_limit", s.config.Server.RateLimit.Enabled),
		zap.Int("combination_threshold", s.Policy().CombinationThreshold))

	go s.wsHub.Run(ctx)
	go s.limiter.Run(ctx)
	go s.broadcastStatus(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping redactor server")
	return s.server.Shutdown(ctx)
}

func (s *Server) broadcastStatus(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wsHub.BroadcastEvent(websocket.Event{
				Type:      websocket.EventTypeSystemStatus,
				Timestamp: time.Now(),
				Data:      s.status(),
			})
		}
	}
}

func (s *Server) status() websocket.SystemStatusEvent {
	return websocket.SystemStatusEvent{
		Status:               "healthy",
		Uptime:               time.Since(s.startTime).Round(time.Second).String(),
		TotalRequests:        s.totalRequests.Load(),
		TotalDetections:      s.totalDetections.Load(),
		CombinationThreshold: s.Policy().CombinationThreshold,
		ConnectedClients:     int(s.wsHub.GetStats().ActiveConnections),
	}
}
