// Package handler contains the HTTP endpoints. Handlers stay thin:
// bind, call a service, translate the sentinel error into a status.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/apperr"
)

// respondError maps the platform's sentinel errors onto HTTP statuses
// and returns the wrapped detail as the response message. Unknown
// errors collapse to a generic 500 so internals never leak.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrRequestTimeout):
		status = http.StatusRequestTimeout
	}
	if status == http.StatusInternalServerError {
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
