// Package httpretry provides typed HTTP errors and exponential-backoff
// retry for outbound API calls.
package httpretry

import "fmt"

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Error represents an HTTP client error with additional context.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Service    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Service, e.Type.String(), e.Message, e.StatusCode)
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}
