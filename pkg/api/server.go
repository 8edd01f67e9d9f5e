package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzzdr/structured-pricer/pkg/metrics"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    float64 // requests per second per client; <= 0 disables limiting
	RateBurst    int
	CORS         CORSConfig
}

// CORSConfig lists what cross-origin callers may do
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	recorder   *metrics.Recorder
	gatherer   prometheus.Gatherer
	log        *logger.Logger
}

// NewServer creates a new API server. recorder and gatherer may be nil.
func NewServer(config Config, handlers *Handlers, recorder *metrics.Recorder, gatherer prometheus.Gatherer) *Server {
	// Apply defaults if needed
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		recorder: recorder,
		gatherer: gatherer,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops
func (s *Server) Start() error {
	s.log.Infof("Starting API server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}
