package core

import "net/http"

// HTTPError represents an HTTP error with a status code and a machine-readable
// error code. Response writers use the code as the stable identifier clients
// can branch on.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Machine-readable error code (e.g. "NOT_FOUND")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// Common boundary errors. Handlers may wrap these with fmt.Errorf("%w: ...")
// to attach detail that is logged server-side but never sent to clients.
var (
	ErrBadRequest      = HTTPError{Code: http.StatusBadRequest, Key: "VALIDATION_ERROR"}
	ErrUnauthorized    = HTTPError{Code: http.StatusUnauthorized, Key: "UNAUTHORIZED"}
	ErrForbidden       = HTTPError{Code: http.StatusForbidden, Key: "FORBIDDEN"}
	ErrNotFound        = HTTPError{Code: http.StatusNotFound, Key: "NOT_FOUND"}
	ErrTooManyRequests = HTTPError{Code: http.StatusTooManyRequests, Key: "LIMIT_EXCEEDED"}

	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "INTERNAL_ERROR"}
)

// NewHTTPError creates a custom HTTP error with the given status code and
// machine-readable error code.
//
// Example:
//
//	err := core.NewHTTPError(http.StatusTooManyRequests, "STATISTICS_LIMIT_EXCEEDED")
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
