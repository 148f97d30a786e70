// Package errors defines the structured error taxonomy for the token broker.
// Every failure that crosses the service boundary is one of a small set of
// codes; internal detail travels on the error chain and is logged, never
// echoed to the caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// CodeKeyUnavailable means no usable private signing key could be
	// resolved. Fatal to minting, not retried automatically.
	CodeKeyUnavailable Code = "key_unavailable"

	// CodeSigningFailure means claim or TTL misconfiguration, or a failure
	// of the signing primitive itself.
	CodeSigningFailure Code = "signing_failure"

	// CodeUnauthenticated means the bearer credential was missing, malformed,
	// expired, or otherwise unverifiable. The public message is deliberately
	// generic so token validity cannot be probed.
	CodeUnauthenticated Code = "unauthenticated"

	// CodeRateLimited means admission was denied by the rate limiter.
	CodeRateLimited Code = "rate_limited"

	// CodeValidation means the caller's own input was malformed. Field-level
	// detail is safe to expose.
	CodeValidation Code = "validation_failure"

	// CodeInternal covers unexpected internal failures.
	CodeInternal Code = "internal_error"
)

// AppError is the structured error used throughout the service.
type AppError struct {
	code    Code
	status  int
	message string
	cause   error
	details map[string]string

	// retryAfter is populated for rate-limited errors only.
	retryAfter time.Duration
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the stable error code.
func (e *AppError) Code() Code {
	return e.code
}

// HTTPStatus returns the HTTP status this error maps to.
func (e *AppError) HTTPStatus() int {
	return e.status
}

// Message returns the caller-safe message.
func (e *AppError) Message() string {
	return e.message
}

// Details returns field-level detail, if any. Populated only for validation
// errors, where the detail describes the caller's own input.
func (e *AppError) Details() map[string]string {
	return e.details
}

// RetryAfter returns the wait hint for rate-limited errors, zero otherwise.
func (e *AppError) RetryAfter() time.Duration {
	return e.retryAfter
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error. The cause is for logs and the
// error chain; it never appears in the public message.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithDetail adds one field-level detail entry.
func (e *AppError) WithDetail(field, reason string) *AppError {
	if e.details == nil {
		e.details = make(map[string]string)
	}
	e.details[field] = reason
	return e
}

// ================================================================================
// Constructors
// ================================================================================

// New creates an AppError with an explicit code, status, and message.
func New(code Code, status int, message string) *AppError {
	return &AppError{code: code, status: status, message: message}
}

// ErrKeyUnavailable reports that no private signing key could be resolved.
func ErrKeyUnavailable(message string) *AppError {
	return New(CodeKeyUnavailable, http.StatusServiceUnavailable, message)
}

// ErrSigningFailure reports a token signing failure.
func ErrSigningFailure(message string) *AppError {
	return New(CodeSigningFailure, http.StatusInternalServerError, message)
}

// ErrUnauthenticated reports a failed bearer check. The message is fixed:
// callers must not be able to distinguish why verification failed.
func ErrUnauthenticated() *AppError {
	return New(CodeUnauthenticated, http.StatusUnauthorized, "invalid bearer token")
}

// ErrRateLimited reports a denied admission with retry-after semantics
// derived from the binding bucket's reset time.
func ErrRateLimited(resetAt time.Time) *AppError {
	e := New(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded")
	if wait := time.Until(resetAt); wait > 0 {
		e.retryAfter = wait
	}
	return e
}

// ErrValidation reports malformed caller input.
func ErrValidation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// ErrInternal reports an unexpected internal failure.
func ErrInternal(message string) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Inspection helpers
// ================================================================================

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ================================================================================
// Response shape
// ================================================================================

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
}

// ToErrorResponse converts any error into the public response shape.
// Foreign errors collapse to a generic internal_error so raw provider
// detail never leaks.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:            string(appErr.Code()),
			ErrorDescription: appErr.Message(),
			Details:          appErr.Details(),
		}
	}
	return &ErrorResponse{
		Error:            string(CodeInternal),
		ErrorDescription: "an unexpected error occurred",
	}
}

// HTTPStatusOf returns the status any error maps to.
func HTTPStatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
