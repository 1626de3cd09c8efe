package campushub

import (
	"errors"
	"fmt"
)

// ErrNetwork marks failures where no response was received at all.
// Callers surface these as a generic connectivity message.
var ErrNetwork = errors.New("campushub: network error")

// ErrNoSession is returned by operations that require stored credentials
// when none are present.
var ErrNoSession = errors.New("campushub: no active session")

// APIError is a non-2xx response from the backend. Detail carries the
// backend-provided message when present; Fields carries per-field validation
// messages from 400 responses.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("campushub: backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("campushub: backend returned %d", e.StatusCode)
}

// HasFieldErrors reports whether the error carries field-level validation
// messages.
func (e *APIError) HasFieldErrors() bool { return len(e.Fields) > 0 }

// AsAPIError unwraps an *APIError from err, or returns nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
