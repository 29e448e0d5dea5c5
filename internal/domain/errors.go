package domain

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage failure")
)

// APIError is the single structured error carried from usecases to the
// transport layer. Err is one of the sentinels above.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func Invalid(message string, details ...string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "INVALID_ARGUMENT", Message: message, Details: details, Err: ErrInvalidArgument}
}

func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message, Err: ErrNotFound}
}

func Forbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: message, Err: ErrForbidden}
}

func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message, Err: ErrUnauthorized}
}

func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "CONFLICT", Message: message, Err: ErrConflict}
}

// StorageFailure wraps an object store error; cause is kept for logging only.
func StorageFailure(message string, cause error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "STORAGE_ERROR", Message: message, Details: causeDetail(cause), Err: ErrStorage}
}

func causeDetail(cause error) []string {
	if cause == nil {
		return nil
	}
	return []string{cause.Error()}
}
