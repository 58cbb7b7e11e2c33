// Package apperrors implements the closed error taxonomy of the
// remediation pipeline (incident spec §7): a typed code, a human message,
// structured details, and an HTTP status mapping for the ingress layer.
package apperrors

import (
	"fmt"
	"net/http"
)

// ErrorType is a closed enum of pipeline error codes.
type ErrorType string

const (
	// Security
	ErrTooManySecrets   ErrorType = "too_many_secrets"
	ErrSanitizationFail ErrorType = "sanitization_failed"
	ErrUnauthorizedRepo ErrorType = "unauthorized_repo"

	// Agent
	ErrDetectiveError  ErrorType = "detective_error"
	ErrReasonerError   ErrorType = "reasoner_error"
	ErrLowConfidence   ErrorType = "low_confidence"
	ErrInvalidPatch    ErrorType = "invalid_patch"
	ErrSandboxError    ErrorType = "sandbox_error"
	ErrSandboxTimeout  ErrorType = "sandbox_timeout"
	ErrTestFailed      ErrorType = "test_failed"
	ErrVerificationFail ErrorType = "verification_failed"
	ErrGithubAPIError  ErrorType = "github_api_error"

	// Orchestration
	ErrInvalidStateTransition ErrorType = "invalid_state_transition"
	ErrMaxRetriesExceeded     ErrorType = "max_retries_exceeded"
	ErrTimeout                ErrorType = "timeout"
	ErrCircuitBreakerOpen      ErrorType = "circuit_breaker_open"

	// Data
	ErrIncidentNotFound ErrorType = "incident_not_found"
	ErrPatchNotFound    ErrorType = "patch_not_found"

	// External
	ErrLLMError    ErrorType = "llm_error"
	ErrDockerError ErrorType = "docker_error"

	// Validation catches malformed HTTP input, separate from the domain
	// codes above but still part of the normalised envelope (§7).
	ErrValidation ErrorType = "validation"
)

var statusByType = map[ErrorType]int{
	ErrTooManySecrets:   http.StatusBadRequest,
	ErrSanitizationFail: http.StatusInternalServerError,
	ErrUnauthorizedRepo: http.StatusUnauthorized,

	ErrDetectiveError:   http.StatusUnprocessableEntity,
	ErrReasonerError:    http.StatusUnprocessableEntity,
	ErrLowConfidence:    http.StatusUnprocessableEntity,
	ErrInvalidPatch:     http.StatusUnprocessableEntity,
	ErrSandboxError:     http.StatusInternalServerError,
	ErrSandboxTimeout:   http.StatusGatewayTimeout,
	ErrTestFailed:       http.StatusUnprocessableEntity,
	ErrVerificationFail: http.StatusUnprocessableEntity,
	ErrGithubAPIError:   http.StatusBadGateway,

	ErrInvalidStateTransition: http.StatusConflict,
	ErrMaxRetriesExceeded:     http.StatusTooManyRequests,
	ErrTimeout:                http.StatusGatewayTimeout,
	ErrCircuitBreakerOpen:     http.StatusServiceUnavailable,

	ErrIncidentNotFound: http.StatusNotFound,
	ErrPatchNotFound:    http.StatusNotFound,

	ErrLLMError:    http.StatusBadGateway,
	ErrDockerError: http.StatusInternalServerError,

	ErrValidation: http.StatusBadRequest,
}

// AppError is the typed failure carried across stage boundaries and
// surfaced to HTTP callers via the normalised envelope.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

// New creates an AppError with no cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusFor(t)}
}

// Newf creates an AppError with a formatted message.
func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap creates an AppError carrying an underlying cause.
func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusFor(t), Cause: cause}
}

// Wrapf creates an AppError carrying an underlying cause with a formatted
// message.
func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// WithDetails attaches additional human-readable context and returns the
// receiver for chaining.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		s += fmt.Sprintf(" (%s)", e.Details)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func statusFor(t ErrorType) int {
	if s, ok := statusByType[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Envelope is the normalised HTTP error body of §7.
type Envelope struct {
	Error   ErrorType      `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToEnvelope converts an AppError into the wire envelope.
func (e *AppError) ToEnvelope() Envelope {
	env := Envelope{Error: e.Type, Message: e.Message}
	if e.Details != "" {
		env.Details = map[string]any{"details": e.Details}
	}
	return env
}

// As reports whether err (or something it wraps) is an *AppError of type t.
func As(err error, t ErrorType) bool {
	for err != nil {
		if ae, ok := err.(*AppError); ok {
			return ae.Type == t
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
