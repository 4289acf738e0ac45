// Package errors provides structured error types for the drift system.
// All errors include a category, code, message, and optional cause for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arkilian/drift/pkg/types"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryRemote     ErrorCategory = "REMOTE"
	ErrCategorySync       ErrorCategory = "SYNC"
	ErrCategoryPolicy     ErrorCategory = "POLICY"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidSchema = "INVALID_SCHEMA"

	// Remote codes
	CodeFetchFailed = "FETCH_FAILED"
	CodeApplyFailed = "APPLY_FAILED"

	// Sync codes
	CodeOutOfSync = "OUT_OF_SYNC"

	// Policy codes
	CodeDisallowedCommand = "DISALLOWED_COMMAND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// DriftError is the structured error type used throughout the system.
type DriftError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
}

// Error returns a formatted error string.
func (e *DriftError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DriftError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DriftError) Is(target error) bool {
	var t *DriftError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DriftError.
func New(category ErrorCategory, code, message string) *DriftError {
	return &DriftError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new DriftError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DriftError {
	return &DriftError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DriftError.
func GetCategory(err error) ErrorCategory {
	var de *DriftError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DriftError.
func GetCode(err error) string {
	var de *DriftError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// InvalidSchemaError reports that the desired schema failed structural
// verification. It is raised before any network interaction and always
// carries the full violation list.
type InvalidSchemaError struct {
	Violations []types.Violation
}

// Error implements error.
func (e *InvalidSchemaError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "  " + v.String()
	}
	return fmt.Sprintf("[%s:%s] desired schema has %d violation(s):\n%s",
		ErrCategoryValidation, CodeInvalidSchema, len(e.Violations), strings.Join(lines, "\n"))
}

// Unwrap exposes the category and code as a DriftError so callers can match
// with errors.Is and route on GetCategory/GetCode.
func (e *InvalidSchemaError) Unwrap() error {
	return New(ErrCategoryValidation, CodeInvalidSchema, "desired schema failed verification")
}

// RemoteFetchError reports that the observed schema could not be retrieved.
type RemoteFetchError struct {
	Cause error
}

// Error implements error.
func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("[%s:%s] failed to fetch observed schema: %v", ErrCategoryRemote, CodeFetchFailed, e.Cause)
}

// Unwrap exposes the category and code as a DriftError; the underlying cause
// stays reachable through it.
func (e *RemoteFetchError) Unwrap() error {
	return Wrap(ErrCategoryRemote, CodeFetchFailed, "failed to fetch observed schema", e.Cause)
}

// OutOfSyncError signals drift detected by check mode: the observed schema
// differs from the desired one by the carried command list. It is a report,
// not a defect.
type OutOfSyncError struct {
	Commands []types.Command
}

// Error implements error.
func (e *OutOfSyncError) Error() string {
	lines := make([]string, len(e.Commands))
	for i, cmd := range e.Commands {
		lines[i] = "  " + cmd.Render()
	}
	return fmt.Sprintf("[%s:%s] schema is out of sync, %d pending change(s):\n%s",
		ErrCategorySync, CodeOutOfSync, len(e.Commands), strings.Join(lines, "\n"))
}

// Unwrap exposes the category and code as a DriftError so callers can match
// with errors.Is and route on GetCategory/GetCode.
func (e *OutOfSyncError) Unwrap() error {
	return New(ErrCategorySync, CodeOutOfSync, "schema is out of sync")
}

// DisallowedCommandError reports that a generated command violates a
// caller-imposed redefinition policy. It aborts the whole plan before any
// mutation is sent.
type DisallowedCommandError struct {
	Command types.Command
}

// Error implements error.
func (e *DisallowedCommandError) Error() string {
	return fmt.Sprintf("[%s:%s] plan contains a disallowed command: %s",
		ErrCategoryPolicy, CodeDisallowedCommand, e.Command.Render())
}

// Unwrap exposes the category and code as a DriftError so callers can match
// with errors.Is and route on GetCategory/GetCode.
func (e *DisallowedCommandError) Unwrap() error {
	return New(ErrCategoryPolicy, CodeDisallowedCommand, "plan contains a disallowed command")
}

// RemoteApplyError reports that a specific command failed against the remote
// during apply. The already-applied prefix of the plan stays applied; there
// is no rollback or retry at this level.
type RemoteApplyError struct {
	Command types.Command
	Cause   error
}

// Error implements error.
func (e *RemoteApplyError) Error() string {
	return fmt.Sprintf("[%s:%s] failed to apply %q: %v",
		ErrCategoryRemote, CodeApplyFailed, e.Command.Render(), e.Cause)
}

// Unwrap exposes the category and code as a DriftError; the underlying cause
// stays reachable through it.
func (e *RemoteApplyError) Unwrap() error {
	return Wrap(ErrCategoryRemote, CodeApplyFailed, "failed to apply command", e.Cause)
}
