// Package server exposes a read-only local status API over the registry and
// the history journal.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"worktreectl/internal/constants"
	"worktreectl/internal/db"
	"worktreectl/internal/logger"
	"worktreectl/internal/registry"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            constants.DefaultServerHost,
		Port:            constants.DefaultServerPort,
		ReadTimeout:     constants.DefaultServerReadTimeout,
		WriteTimeout:    constants.DefaultServerWriteTimeout,
		ShutdownTimeout: constants.DefaultServerShutdownTimeout,
	}
}

// Registry is the read side of the registry store
type Registry interface {
	ListAll() ([]registry.Environment, error)
	Get(id string) (*registry.Environment, error)
}

// History is the read side of the history journal. A nil History disables
// the history endpoint.
type History interface {
	List(ctx context.Context, filter db.EventFilter) ([]db.Event, error)
}

// HealthChecker reports on the journal database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	GetCurrentVersion(ctx context.Context) (uint, error)
}

// Server represents the status HTTP server
type Server struct {
	config    *Config
	echo      *echo.Echo
	registry  Registry
	history   History
	health    HealthChecker
	startTime time.Time
}

// New creates a server. history and health may be nil when the journal is disabled.
func New(cfg *Config, reg Registry, history History, health HealthChecker) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	s := &Server{
		config:    cfg,
		echo:      e,
		registry:  reg,
		history:   history,
		health:    health,
		startTime: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo returns the Echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	logger.WithField("addr", s.Addr()).Info("Status server listening")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Logger.Info("Shutting down status server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(logger.RequestLogger())
	s.echo.Use(middleware.Recover())
	// read-only: anything but GET/HEAD is rejected
	s.echo.Use(readOnly)
}
