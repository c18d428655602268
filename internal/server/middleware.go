package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
)

// readOnly rejects every method that could mutate state
func readOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead:
			return next(c)
		}
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "status API is read-only")
	}
}

// ErrorHandler renders WorktreeErrors with their code and plain echo errors
// with their message
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = errors.ToHTTPError(err)
	}

	var body interface{}
	switch msg := he.Message.(type) {
	case errors.HTTPErrorResponse:
		body = msg
	case string:
		body = ErrorResponse{Error: msg}
	default:
		body = ErrorResponse{Error: http.StatusText(he.Code)}
	}

	if he.Code >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Request().URL.Path).Error("Request error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, body)
}
