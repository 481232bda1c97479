package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure classes. Callers match with
// errors.Is and decide how to surface them.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidState = errors.New("operation not valid in current state")
	ErrConnection   = errors.New("connection failed")
	ErrAuth         = errors.New("authentication failed")
)

// ValidationError reports rejected user input. The Field names the offending
// attribute when known.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Validation creates a ValidationError for a field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFound wraps ErrNotFound with the entity and key that were missing.
func NotFound(entity, key string) error {
	return fmt.Errorf("%s %q: %w", entity, key, ErrNotFound)
}

// InvalidState wraps ErrInvalidState with a reason.
func InvalidState(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidState)
}

// RemoteServiceError reports a non-2xx response or transport failure from a
// vendor API. Status is 0 when the request never reached the service.
type RemoteServiceError struct {
	Service string
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: request failed: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

// Remote creates a RemoteServiceError.
func Remote(service string, status int, message string) error {
	return &RemoteServiceError{Service: service, Status: status, Message: message}
}

// AsRemote extracts a RemoteServiceError from err, if present.
func AsRemote(err error) (*RemoteServiceError, bool) {
	var re *RemoteServiceError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
