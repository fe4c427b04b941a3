// Package trust defines the error taxonomy shared by every trust engine
// component: a stable discriminant code plus a human message, wrapped the
// usual way with fmt.Errorf("...: %w", err) as it crosses layers.
package trust

import "fmt"

// Code is one of the error discriminants surfaced through the component
// interfaces (never type names, per the external interface contract).
type Code string

const (
	CodeInvalidStreamID     Code = "INVALID_STREAM_ID"
	CodeEmptyAppend         Code = "EMPTY_APPEND"
	CodeInvalidVersion      Code = "INVALID_VERSION"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeHalt                Code = "HALT"
	CodeExplicitLineage     Code = "EXPLICIT_LINEAGE"
	CodeUnknownParent       Code = "UNKNOWN_PARENT"
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeBudgetExceeded      Code = "BUDGET_EXCEEDED"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeWitnessSubmitFailed Code = "WITNESS_SUBMIT_FAILED"
	CodeQuorumNotMet        Code = "QUORUM_NOT_MET"
	CodeSLAViolation        Code = "SLA_VIOLATION"
	CodeCancelled           Code = "CANCELLED"
)

// Error is a discriminated failure. It implements the standard error
// interface so it composes with errors.Is/errors.As and fmt.Errorf wrapping.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, trust.New(trust.CodeHalt, "")) or compare codes via
// CodeOf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New constructs a discriminated Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a discriminated Error that wraps a lower-level cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Code from err if it is (or wraps) a *Error, and
// reports ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Code, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
