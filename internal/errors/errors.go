// Package errors defines the coded application error shared by the service,
// data and HTTP layers. Handlers translate codes to status codes; services
// never see HTTP.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForeignKey ErrorCode = "foreign_key"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
	// ErrCodeUnauthenticated covers a missing or unverifiable session and a
	// stored role outside the registry. Both mean "no principal".
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeForbidden is a known role lacking the required permission.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodePrivilegeEscalation is a rejected role or account change. It is
	// kept apart from forbidden so callers can surface it explicitly.
	ErrCodePrivilegeEscalation ErrorCode = "privilege_escalation"
)

// AppError carries a code, a message safe to show to API clients, and the
// underlying cause for logs.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input, when there is one.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newErr(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NotFound(message string) *AppError { return newErr(ErrCodeNotFound, message) }

func NotFoundf(format string, args ...any) *AppError { return newErr(ErrCodeNotFound, fmt.Sprintf(format, args...)) }

func Conflict(message string) *AppError { return newErr(ErrCodeConflict, message) }

func Validation(message string) *AppError { return newErr(ErrCodeValidation, message) }

// ValidationField is a validation error attributed to one input field.
func ValidationField(field, message string) *AppError {
	e := newErr(ErrCodeValidation, message)
	e.Field = field
	return e
}

func Internal(message string) *AppError { return newErr(ErrCodeInternal, message) }

func Unauthenticated(message string) *AppError { return newErr(ErrCodeUnauthenticated, message) }

func Forbidden(message string) *AppError { return newErr(ErrCodeForbidden, message) }

func Forbiddenf(format string, args ...any) *AppError { return newErr(ErrCodeForbidden, fmt.Sprintf(format, args...)) }

func PrivilegeEscalation(message string) *AppError {
	return newErr(ErrCodePrivilegeEscalation, message)
}

func PrivilegeEscalationf(format string, args ...any) *AppError {
	return newErr(ErrCodePrivilegeEscalation, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and client-facing message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func isCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

func IsNotFound(err error) bool            { return isCode(err, ErrCodeNotFound) }
func IsConflict(err error) bool            { return isCode(err, ErrCodeConflict) }
func IsValidation(err error) bool          { return isCode(err, ErrCodeValidation) }
func IsForeignKey(err error) bool          { return isCode(err, ErrCodeForeignKey) }
func IsUnauthenticated(err error) bool     { return isCode(err, ErrCodeUnauthenticated) }
func IsForbidden(err error) bool           { return isCode(err, ErrCodeForbidden) }
func IsPrivilegeEscalation(err error) bool { return isCode(err, ErrCodePrivilegeEscalation) }

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
