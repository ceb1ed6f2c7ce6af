package handler

import (
	"errors"
	"net/http"

	"github.com/detodo/marketplace-backend/internal/logger"
	"github.com/detodo/marketplace-backend/internal/metrics"
	"github.com/detodo/marketplace-backend/internal/repository"
	"github.com/detodo/marketplace-backend/internal/response"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse = response.ErrorResponse

func NewErrorResponse(code, message string) ErrorResponse {
	return response.NewError(code, message)
}

func NewFieldErrorResponse(field, message string) ErrorResponse {
	return response.NewFieldError(field, message)
}

// writeError maps service errors onto the HTTP error envelope. Anything it
// does not recognise is logged and reported as a 500.
func writeError(c echo.Context, err error, op string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, NewFieldErrorResponse(verr.Field, verr.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "resource not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", err.Error()))
	case errors.Is(err, repository.ErrDBNotReady):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "database is not ready"))
	}
	logger.L().Error("request failed",
		zap.String("op", op),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	metrics.IncError("handler", op)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to "+op))
}

func badJSON(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
}
