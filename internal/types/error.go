package types

import "fmt"

// ErrorKind classifies an AppError into an HTTP-mappable category.
type ErrorKind string

const (
	ErrNotFound      ErrorKind = "not_found"
	ErrValidation    ErrorKind = "validation"
	ErrAuthorization ErrorKind = "authorization"
	ErrConflict      ErrorKind = "conflict"
	ErrExternal      ErrorKind = "external"
	ErrRateLimited   ErrorKind = "rate_limited"
	ErrPersistence   ErrorKind = "persistence"
)

// AppError is the error type returned by all services. Handlers and the
// global fiber error handler translate Kind into an HTTP status.
type AppError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s [field: %s]", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case ErrNotFound:
		return 404
	case ErrValidation:
		return 400
	case ErrAuthorization:
		return 403
	case ErrConflict:
		return 409
	case ErrExternal:
		return 502
	case ErrRateLimited:
		return 429
	default:
		return 500
	}
}

func NotFound(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

func Validation(message, field string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message, Field: field}
}

func Authorization(message string) *AppError {
	return &AppError{Kind: ErrAuthorization, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: ErrConflict, Message: message}
}

func External(message string, err error) *AppError {
	return &AppError{Kind: ErrExternal, Message: message, Err: err}
}

func RateLimited(message string, retryAfter int) *AppError {
	return &AppError{Kind: ErrRateLimited, Message: message, RetryAfter: retryAfter}
}

func Persistence(err error) *AppError {
	return &AppError{Kind: ErrPersistence, Message: "database operation failed", Err: err}
}
