package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is; an *APIError matches the kind of
// its status code.
var (
	ErrNetwork      = errors.New("skillswap: network error")
	ErrValidation   = errors.New("skillswap: validation failed")
	ErrUnauthorized = errors.New("skillswap: unauthorized")
	ErrForbidden    = errors.New("skillswap: forbidden")
	ErrNotFound     = errors.New("skillswap: not found")
	ErrBusinessRule = errors.New("skillswap: business rule violated")

	// ErrNoSession is returned without any request when an operation needs
	// an authenticated session and there is none.
	ErrNoSession = errors.New("skillswap: not logged in")
)

// APIError represents a structured error response from the server.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == "ALREADY_EXISTS" { ... }
//	}
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// Code is the server error code (e.g., "NOT_FOUND", "FAILED_PRECONDITION").
	Code string `json:"code"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("skillswap: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBusinessRule:
		return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusPreconditionFailed
	}
	return false
}

// Failure is an error whose Error text is fit to show to an end user. The
// underlying cause stays reachable through errors.Is and errors.As.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// fail wraps err in a Failure. The server's own message wins for
// validation, auth and business-rule errors; anything else shows fallback.
func fail(err error, fallback string) error {
	if err == nil {
		return nil
	}
	msg := fallback
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.StatusCode < http.StatusInternalServerError {
		msg = apiErr.Message
	}
	return &Failure{Message: msg, Err: err}
}
