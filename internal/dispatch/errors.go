package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/flaskbasic/basicapp/internal/entity"
)

// Auth errors.
var (
	ErrAuthTokenMissing = errors.New("auth token missing")
	ErrAuthTokenInvalid = errors.New("auth token invalid")
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// AuthError reports a missing or mismatched auth header.
type AuthError struct {
	Header string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: header %s", e.Err, e.Header)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Status returns 403 for a missing header and 401 for a wrong one.
func (e *AuthError) Status() int {
	if errors.Is(e.Err, ErrAuthTokenMissing) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// HTTPError is an error that carries its own response status.
type HTTPError struct {
	Status  int
	Message string
}

// NewHTTPError creates an HTTPError with a formatted message.
func NewHTTPError(status int, format string, args ...any) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// ValidationError reports a malformed request or response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ParamError reports a query parameter that could not be cast to its
// declared type.
type ParamError struct {
	Name  string
	Type  ParamType
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %s: cannot cast %q to %s: %v", e.Name, e.Value, e.Type, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StatusOf maps an error to its response status. HTTP errors keep their
// own status, auth errors map to 401/403, everything else is 400.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status != 0 {
		return httpErr.Status
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status()
	}
	return http.StatusBadRequest
}

// codeOf returns the machine-readable code for an error response.
func codeOf(err error) string {
	var (
		httpErr  *HTTPError
		paramErr *ParamError
		panicErr *PanicError
	)
	switch {
	case errors.Is(err, ErrAuthTokenMissing):
		return "AUTH_TOKEN_MISSING"
	case errors.Is(err, ErrAuthTokenInvalid):
		return "AUTH_TOKEN_INVALID"
	case errors.As(err, &httpErr):
		switch httpErr.Status {
		case http.StatusNotFound:
			return "NOT_FOUND"
		case http.StatusConflict:
			return "CONFLICT"
		case http.StatusRequestEntityTooLarge:
			return "PAYLOAD_TOO_LARGE"
		}
		return "HTTP_ERROR"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, entity.ErrNotFound):
		return "ENTITY_NOT_FOUND"
	case errors.Is(err, entity.ErrPersistence):
		return "PERSISTENCE_ERROR"
	case errors.As(err, &paramErr):
		return "INVALID_PARAMETER"
	case errors.As(err, &panicErr):
		return "HANDLER_PANIC"
	default:
		return "BAD_REQUEST"
	}
}
