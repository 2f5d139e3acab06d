package sharepoint

import (
	"errors"
	"fmt"
)

// Kind is the category of a submission failure
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this package
	KindUnknown Kind = iota
	// KindValidation indicates a required record field is empty
	KindValidation
	// KindAuth indicates the client-credentials exchange failed
	KindAuth
	// KindSubmission indicates the list item could not be created
	KindSubmission
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation Error"
	case KindAuth:
		return "Authentication Error"
	case KindSubmission:
		return "Submission Error"
	case KindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Label returns a short machine-friendly name, used as a metric label
func (k Kind) Label() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

// Messages returned to callers. Diagnostic detail is logged, not returned.
const (
	authFailedMessage = "Erro ao obter o token de acesso. Verifique as credenciais."
	requiredMessage   = "Todos os campos são obrigatórios."
)

// Error is returned by every Client operation.
type Error struct {
	Kind       Kind
	Message    string   // caller-facing message, never carries credentials
	StatusCode int      // HTTP status code (if applicable)
	Missing    []string // empty fields (validation only)
	Err        error    // underlying cause, for logging
}

// Error implements the error interface. The cause is deliberately left out;
// use errors.Unwrap to reach it.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for the given empty fields
func NewValidationError(missing []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: requiredMessage,
		Missing: missing,
	}
}

// NewAuthError creates an authentication error. The message is fixed so no
// identity platform detail leaks to callers.
func NewAuthError(statusCode int, cause error) *Error {
	return &Error{
		Kind:       KindAuth,
		Message:    authFailedMessage,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewSubmissionError creates a list item creation error
func NewSubmissionError(statusCode int, message string, cause error) *Error {
	return &Error{
		Kind:       KindSubmission,
		Message:    message,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error
func KindOf(err error) Kind {
	var spErr *Error
	if errors.As(err, &spErr) {
		return spErr.Kind
	}
	return KindUnknown
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	return KindOf(err) == KindAuth
}

// IsSubmissionError checks if an error is a list item creation error
func IsSubmissionError(err error) bool {
	return KindOf(err) == KindSubmission
}

// StatusCodeOf returns the HTTP status carried by err, or 0
func StatusCodeOf(err error) int {
	var spErr *Error
	if errors.As(err, &spErr) {
		return spErr.StatusCode
	}
	return 0
}

// MissingOf returns the empty fields named by a validation error
func MissingOf(err error) []string {
	var spErr *Error
	if errors.As(err, &spErr) {
		return spErr.Missing
	}
	return nil
}
