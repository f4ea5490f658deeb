package match

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the sync engine. Callers branch on them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport error")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	ErrRejected   = errors.New("rejected by backend")
	ErrConflict   = errors.New("conflicting action")
)

// Invalid builds a validation error for input rejected before any network call.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// APIError carries the backend's own message for a `success: false` response.
type APIError struct {
	Kind    error
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Kind reports which taxonomy bucket err belongs to, or nil when unclassified.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrTransport, ErrValidation, ErrForbidden, ErrRejected, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
