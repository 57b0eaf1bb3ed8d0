// Package server exposes the journey engine over HTTP: touchpoint ingestion
// and the read-only query endpoints. It is the concrete realization of the
// engine's interface boundary; richer transports (GraphQL, dashboards) live
// outside this repository.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/journeyd/internal/config"
	"github.com/fyrsmithlabs/journeyd/internal/engine"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// defaultListLimit is applied when a list endpoint gets no limit parameter.
const defaultListLimit = 10

// Server is the journeyd HTTP server.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	echo    *echo.Echo
	logger  *zap.Logger
	limiter *rate.Limiter
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the HTTP server with standard middleware, the ingestion
// endpoint, and the query façade routes.
func NewServer(cfg *config.Config, eng *engine.Engine, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		cfg:     cfg,
		engine:  eng,
		echo:    e,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.Ingest.RatePerSecond), cfg.Ingest.Burst),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api/v1")
	api.POST("/touchpoints", s.handleTrack)
	api.GET("/identities/:id/journeys", s.handleJourneys)
	api.GET("/journeys/:id/visualization", s.handleVisualization)
	api.GET("/paths", s.handlePaths)
	api.GET("/dropoffs", s.handleDropOffs)
	api.GET("/optimizations", s.handleOptimizations)

	s.echo.GET("/health", s.handleHealth)
}

// handleTrack ingests one touchpoint. Validation failures map to 400;
// stitching failures to 500; rate-limit rejections to 429.
func (s *Server) handleTrack(c echo.Context) error {
	if !s.limiter.Allow() {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "ingestion rate limit exceeded"})
	}

	var in touchpoint.Input
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed touchpoint payload"})
	}

	tp, err := s.engine.Track(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, touchpoint.ErrUnknownType) || errors.Is(err, touchpoint.ErrUnknownChannel) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		s.logger.Error("track failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to track touchpoint"})
	}

	return c.JSON(http.StatusCreated, tp)
}

func (s *Server) handleJourneys(c echo.Context) error {
	identity := c.Param("id")
	return c.JSON(http.StatusOK, s.engine.JourneysForIdentity(identity))
}

func (s *Server) handleVisualization(c echo.Context) error {
	vis, err := s.engine.JourneyVisualization(c.Param("id"))
	if err != nil {
		if errors.Is(err, journey.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "journey not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to build visualization"})
	}
	return c.JSON(http.StatusOK, vis)
}

func (s *Server) handlePaths(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.TopConversionPaths(listLimit(c)))
}

func (s *Server) handleDropOffs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.TopDropOffs(listLimit(c)))
}

func (s *Server) handleOptimizations(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.TopOptimizations(listLimit(c)))
}

// handleHealth reports engine health. Unhealthy maps to 503 so load
// balancers can act on it; degraded still serves traffic.
func (s *Server) handleHealth(c echo.Context) error {
	h := s.engine.HealthCheck()
	code := http.StatusOK
	if h.Status == engine.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, h)
}

// listLimit parses the limit query parameter, falling back to the default.
func listLimit(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	return limit
}

// Echo returns the underlying Echo instance for registering additional
// routes (e.g. the Prometheus metrics handler).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown with the configured timeout. Returns
// http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
