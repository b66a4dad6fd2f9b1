// Package http exposes ingestion and temporal retrieval over a JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/0xcro3dile/chronorag-go/internal/domain/usecases"
)

// Server is the HTTP API.
type Server struct {
	echo         *echo.Echo
	query        *usecases.QueryUseCase
	ingest       *usecases.IngestUseCase
	ingestDir    string
	addr         string
	queryTimeout time.Duration
	uploadLimit  string
	metrics      http.Handler
	checks       []healthCheck
	logger       *slog.Logger
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck adds a dependency probe reported by GET /api/health.
func WithHealthCheck(name string, check func(context.Context) error) Option {
	return func(s *Server) {
		if check != nil {
			s.checks = append(s.checks, healthCheck{name: name, check: check})
		}
	}
}

// WithQueryTimeout bounds each query, including generation.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Server) { s.queryTimeout = d }
}

// WithUploadLimitMB caps the upload body size.
func WithUploadLimitMB(mb int) Option {
	return func(s *Server) {
		if mb > 0 {
			s.uploadLimit = fmt.Sprintf("%dM", mb)
		}
	}
}

// NewServer wires the routes. ingestDir is where POST /api/documents reads
// from and where uploads are written.
func NewServer(
	queryUC *usecases.QueryUseCase,
	ingestUC *usecases.IngestUseCase,
	ingestDir string,
	addr string,
	opts ...Option,
) *Server {
	s := &Server{
		query:        queryUC,
		ingest:       ingestUC,
		ingestDir:    ingestDir,
		addr:         addr,
		queryTimeout: 2 * time.Minute,
		uploadLimit:  "32M",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/documents", s.handleListDocuments)
	api.POST("/documents", s.handleIngestDir)
	api.POST("/documents/upload", s.handleUpload, middleware.BodyLimit(s.uploadLimit))
	api.POST("/query", s.handleQuery)
	api.GET("/query/stream", s.handleQueryStream)
	api.POST("/search", s.handleSearch)

	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	s.echo = e
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
