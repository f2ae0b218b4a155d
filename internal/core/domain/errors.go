package domain

import "net/http"

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	// ErrCodeClientProtocol covers malformed requests: wrong method,
	// missing body, missing SAMLResponse field.
	ErrCodeClientProtocol ErrorCode = "client_protocol"

	// ErrCodeAssertionInvalid covers every failed verification check:
	// bad signature, expired time window, wrong audience, missing
	// required attribute. Callers must not distinguish which check failed.
	ErrCodeAssertionInvalid ErrorCode = "assertion_invalid"

	// ErrCodeInternal covers unexpected failures.
	ErrCodeInternal ErrorCode = "internal"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// HTTPStatus returns the HTTP status code for this error code.
// Client-protocol and assertion failures share 400 so that the response
// cannot be used as a verification oracle.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeClientProtocol, ErrCodeAssertionInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Title returns a user-facing title for this error code.
func (c ErrorCode) Title() string {
	switch c {
	case ErrCodeClientProtocol, ErrCodeAssertionInvalid:
		return "Sign-in Failed"
	default:
		return "Service Error"
	}
}

// PublicMessage returns the fixed message sent to the client. The same
// message covers both 400 classes; the real cause stays in server logs.
func (c ErrorCode) PublicMessage() string {
	switch c {
	case ErrCodeClientProtocol, ErrCodeAssertionInvalid:
		return "The sign-in request could not be processed. Please try again."
	default:
		return "An internal error occurred. Please try again later."
	}
}

// AppError is a structured error with code, diagnostic stage, and
// optional cause. Stage and Cause are for server-side logging only and
// never reach the response body.
type AppError struct {
	Code  ErrorCode
	Stage string
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Stage + ": " + e.Cause.Error()
	}
	return e.Stage
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ProtocolError creates a client-protocol error for the given stage.
func ProtocolError(stage string) *AppError {
	return &AppError{Code: ErrCodeClientProtocol, Stage: stage}
}

// AssertionError creates a uniform assertion-validation error.
func AssertionError(stage string, cause error) *AppError {
	return &AppError{Code: ErrCodeAssertionInvalid, Stage: stage, Cause: cause}
}

// InternalError creates an internal error.
func InternalError(stage string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Stage: stage, Cause: cause}
}
