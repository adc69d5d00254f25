// Package core provides the HTTP response envelope and the boundary error
// taxonomy shared by every mounted module. All failures are converted to a
// JSON error body here; no error crosses a handler unwrapped.
package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the standard JSON response structure.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information returned to clients.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// WriteJSON writes v wrapped in the standard envelope with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Data: v})
}

// WriteError converts err to the boundary taxonomy and writes a JSON error
// body. HTTPError values keep their status and code; anything else becomes a
// 500 with a generic message so upstream provider details never leak.
func WriteError(w http.ResponseWriter, err error) {
	httpErr := ErrInternalServerError
	var he HTTPError
	if errors.As(err, &he) {
		httpErr = he
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Code)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Error: &ErrorDetail{
			Code:    httpErr.Key,
			Message: messageFor(httpErr),
		},
	})
}

// WriteErrorDetail writes a fully specified error detail with the given status.
// Used where the response carries extra machine-readable fields, e.g. quota
// responses that include the limit and current usage in Meta.
func WriteErrorDetail(w http.ResponseWriter, status int, detail ErrorDetail, meta map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Meta: meta, Error: &detail})
}

func messageFor(err HTTPError) string {
	switch err.Code {
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusTooManyRequests:
		return "limit exceeded"
	default:
		return "internal server error"
	}
}
