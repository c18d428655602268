package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"worktreectl/internal/db"
	"worktreectl/internal/errors"
)

// Health states
const (
	healthOK       = "healthy"
	healthDegraded = "degraded"
	healthDisabled = "disabled"
	healthError    = "unhealthy"
)

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")

	environments := api.Group("/environments")
	environments.GET("", s.handleListEnvironments)
	environments.GET("/:id", s.handleGetEnvironment)

	api.GET("/history", s.handleListHistory)
}

// handleHealth reports registry readability and journal state. A broken
// journal degrades the status but never fails the probe.
func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{
		Status:   healthOK,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Registry: healthOK,
		History:  healthDisabled,
	}

	if _, err := s.registry.ListAll(); err != nil {
		resp.Registry = healthError
		resp.Status = healthDegraded
	}

	if s.health != nil {
		resp.History = healthOK
		if err := s.health.HealthCheck(ctx); err != nil {
			resp.History = healthError
			resp.Status = healthDegraded
		} else if v, err := s.health.GetCurrentVersion(ctx); err == nil {
			resp.SchemaVersion = v
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListEnvironments(c echo.Context) error {
	envs, err := s.registry.ListAll()
	if err != nil {
		return errors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, EnvironmentsResponse{
		Environments: envs,
		Total:        len(envs),
	})
}

func (s *Server) handleGetEnvironment(c echo.Context) error {
	env, err := s.registry.Get(c.Param("id"))
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, env)
}

// handleListHistory lists journal events, newest first.
// Query: limit (default 50), environment (id filter).
func (s *Server) handleListHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history is disabled")
	}

	filter := db.EventFilter{EnvironmentID: c.QueryParam("environment")}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return errors.ToHTTPError(errors.ValidationFailed("limit", raw, "must be a positive integer"))
		}
		filter.Limit = limit
	}

	events, err := s.history.List(c.Request().Context(), filter)
	if err != nil {
		return errors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		Events: events,
		Total:  len(events),
	})
}
