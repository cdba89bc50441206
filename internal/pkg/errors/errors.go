package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ExternalServiceError wraps a failure from a collaborator (tracker, LLM,
// vector index, chat bot) after the client's retry budget is exhausted.
// Transient marks failures that are worth retrying on a later run, as
// opposed to permanent ones such as bad credentials.
type ExternalServiceError struct {
	Service   string
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Service, kind, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewTransient(service string, err error) error {
	return &ExternalServiceError{Service: service, Transient: true, Err: err}
}

func NewPermanent(service string, err error) error {
	return &ExternalServiceError{Service: service, Transient: false, Err: err}
}

// IsTransient reports whether err is an ExternalServiceError marked transient.
func IsTransient(err error) bool {
	var ese *ExternalServiceError
	if errors.As(err, &ese) {
		return ese.Transient
	}
	return false
}
