package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a task or employee does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed is returned when a transition is not legal from
	// the task's current state.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrVersionConflict is returned when a mutation was based on a task
	// version the store no longer holds.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique value, such as an employee
	// username, is already taken.
	ErrDuplicate = errors.New("already exists")

	// ErrSessionExpired is returned when the store rejects the bearer token.
	ErrSessionExpired = errors.New("session expired")

	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials is returned when a sign-in does not match an
	// employee's username and password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotAssignee is returned when an employee mutates a task assigned to
	// someone else.
	ErrNotAssignee = fmt.Errorf("task is not assigned to caller: %w", ErrForbidden)
)

// ValidationError lists the fields that failed client-side or server-side
// validation. The request is never dispatched when it is returned locally.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// Add records a problem for field.
func (e *ValidationError) Add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
}

// OrNil returns e when it holds at least one field and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ServerError is a non-2xx response the store explained with a message.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure (no connectivity, timeout).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
