package errors

import (
	"errors"
	"fmt"
)

// Process exit codes reported by the command line for each error family.
const (
	ExitInternal   = 1
	ExitValidation = 2
	ExitDomainRule = 3
	ExitNotFound   = 4
)

// Error represents a typed domain error carrying the exit code the CLI reports.
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ExitCode int    `json:"-"`
	Err      error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors still compare to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, exitCode int, message string) *Error {
	return &Error{Code: code, ExitCode: exitCode, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, exitCode int, message string) *Error {
	return &Error{Code: code, ExitCode: exitCode, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation         = New("VALIDATION_ERROR", ExitValidation, "validation failed")
	ErrNotFound           = New("NOT_FOUND", ExitNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", ExitDomainRule, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", ExitDomainRule, "precondition failed")
	ErrNotEnrolled        = New("NOT_ENROLLED", ExitDomainRule, "student is not enrolled in this offering")
	ErrGradeOutOfRange    = New("GRADE_OUT_OF_RANGE", ExitDomainRule, "grade must be between 0 and 10")
	ErrInternal           = New("INTERNAL_ERROR", ExitInternal, "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.ExitCode, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsDomainRule reports whether err belongs to the domain rule violation family.
func IsDomainRule(err error) bool {
	e := FromError(err)
	return e != nil && e.ExitCode == ExitDomainRule
}
