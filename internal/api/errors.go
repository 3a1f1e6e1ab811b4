// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/warehouse-visualizer/backend/internal/client"
	"github.com/warehouse-visualizer/backend/internal/render"
	"github.com/warehouse-visualizer/backend/internal/session"
	"github.com/warehouse-visualizer/backend/internal/view"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewBadGatewayError creates a 502 error for a failed upstream call
func NewBadGatewayError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadGateway,
		Code:    "UPSTREAM_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// FromError maps domain errors to an APIError. Upstream 404s stay 404,
// other upstream failures become 502, an open circuit is a 503 and render
// drift is a 500.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var flowErr *view.FlowError
	stage := ""
	if errors.As(err, &flowErr) {
		stage = string(flowErr.Stage) + ": "
	}

	var statusErr *client.StatusError
	var urlErr *url.Error
	switch {
	case errors.Is(err, view.ErrInvalidParams):
		return NewBadRequestError("invalid view parameters", err)
	case errors.Is(err, session.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "view not found"}
	case errors.Is(err, view.ErrNotLoaded):
		return NewConflictError("warehouse not loaded")
	case errors.Is(err, view.ErrSuperseded):
		return NewConflictError("path request superseded by a newer one")
	case errors.Is(err, client.ErrCircuitOpen):
		apiErr = NewServiceUnavailableError(stage + "warehouse API temporarily unavailable")
		apiErr.Details = err.Error()
		return apiErr
	case errors.Is(err, render.ErrUnknownCellState):
		return NewInternalError("grid contains an unknown cell state", err)
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		apiErr = &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: stage + "upstream resource not found"}
		apiErr.Details = err.Error()
		return apiErr
	case statusErr != nil, flowErr != nil, errors.As(err, &urlErr):
		return NewBadGatewayError(stage+"upstream request failed", err)
	default:
		return NewInternalError("An unexpected error occurred", err)
	}
}

// showErrorDetails controls whether unexpected errors expose their message.
var showErrorDetails = true

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = FromError(err)
		if apiErr.Status == http.StatusInternalServerError && !showErrorDetails {
			apiErr.Details = ""
		}
	}

	// Send JSON response
	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
