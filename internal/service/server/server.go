// Package server exposes transfer status over HTTP while a run is active.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"go.uber.org/zap"

	"github.com/arithx/update-engine/internal/domain"
)

// StatusStore is the slice of the transfer store the API reads from
type StatusStore interface {
	Ping() error
	List(limit int) ([]*domain.Transfer, error)
}

// RunState reports whether the pipeline is currently processing
type RunState interface {
	IsRunning() bool
}

// Metrics exposes event counters for the status endpoint
type Metrics interface {
	GetMetrics() map[string]int64
}

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "127.0.0.1:8680",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server represents the HTTP status server
type Server struct {
	config  *Config
	logger  *zap.Logger
	server  *http.Server
	handler *StatusHandler
}

// New creates a new HTTP server
func New(cfg *Config, store StatusStore, run RunState, metrics Metrics, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		handler: NewStatusHandler(store, run, metrics, logger),
	}

	e := echo.New()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	e.GET("/health", s.handler.HandleHealth)
	e.GET("/status", s.handler.HandleStatus)
	e.GET("/transfers", s.handler.HandleTransfers)

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying handler for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
