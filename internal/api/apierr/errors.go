package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/levelgrid/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	CodeInvalidLevel      = "INVALID_LEVEL"
	CodeLevelNotFound     = "LEVEL_NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRunInProgress     = "RUN_IN_PROGRESS"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Validation errors carry their detail, so the message is passed through
	switch {
	case errors.Is(err, model.ErrLevelNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLevelNotFound, "Level not found"}}
	case errors.Is(err, model.ErrInvalidLevel):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLevel, err.Error()}}
	case errors.Is(err, model.ErrInvalidIdentifier):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidIdentifier, "Identifier must not be empty"}}
	case errors.Is(err, model.ErrRunInProgress):
		return &httpError{http.StatusConflict, APIError{CodeRunInProgress, "A deletion check run is already in progress"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Missing or invalid scheduler secret"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
