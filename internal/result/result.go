// Package result defines the uniform success/failure value returned by every
// engine operation. Business conditions are carried as Failure values, never
// as Go errors; only genuinely unexpected faults are converted to an
// internal_error failure, exactly once, at the operation boundary.
package result

import "fmt"

// Status is a transport-agnostic severity. The transport layer maps it to a
// wire status code.
type Status string

const (
	StatusBadRequest Status = "bad_request"
	StatusForbidden  Status = "forbidden"
	StatusConflict   Status = "conflict"
	StatusNotFound   Status = "not_found"
	StatusInternal   Status = "internal_error"

	// StatusUnauthorized is coined by the transport layer when no actor
	// could be resolved. Engine operations never return it; they only run
	// with an actor already in hand.
	StatusUnauthorized Status = "unauthorized"
)

// Failure describes why an operation was refused. It implements error so it
// can travel through transaction closures before being attached to a Result.
type Failure struct {
	Status       Status         `json:"status"`
	Code         string         `json:"error_code"`
	Message      string         `json:"message"`
	ResourceType string         `json:"resource_type,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// WithResource returns a copy of the failure tagged with a resource type.
func (f *Failure) WithResource(resourceType string) *Failure {
	clone := *f
	clone.ResourceType = resourceType
	return &clone
}

// WithDetails returns a copy of the failure carrying extra detail fields.
func (f *Failure) WithDetails(details map[string]any) *Failure {
	clone := *f
	clone.Details = details
	return &clone
}

// Result is the tagged union. Exactly one of data/failure is meaningful.
type Result[T any] struct {
	data    T
	failure *Failure
}

func OK[T any](data T) Result[T] {
	return Result[T]{data: data}
}

func Fail[T any](f *Failure) Result[T] {
	if f == nil {
		f = Internal("")
	}
	return Result[T]{failure: f}
}

func (r Result[T]) OK() bool { return r.failure == nil }

// Data returns the success payload. Zero value when the result is a failure.
func (r Result[T]) Data() T { return r.data }

func (r Result[T]) Failure() *Failure { return r.failure }

// NewFailure builds a failure with an explicit severity.
func NewFailure(status Status, code, message string) *Failure {
	return &Failure{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *Failure {
	return NewFailure(StatusBadRequest, code, message)
}

func Forbidden(code, message string) *Failure {
	return NewFailure(StatusForbidden, code, message)
}

func Conflict(code, message string) *Failure {
	return NewFailure(StatusConflict, code, message)
}

func NotFound(resourceType string) *Failure {
	f := NewFailure(StatusNotFound, "not_found", "resource not found")
	f.ResourceType = resourceType
	return f
}

// Internal deliberately carries no diagnostic detail; callers must treat the
// transaction outcome as unknown and re-fetch or retry idempotently.
func Internal(resourceType string) *Failure {
	f := NewFailure(StatusInternal, "internal_error", "internal error")
	f.ResourceType = resourceType
	return f
}
