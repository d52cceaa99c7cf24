package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// ErrorCode is the flat command outcome taxonomy.
type ErrorCode string

const (
	// CodeSuccess is reported for a nil error.
	CodeSuccess ErrorCode = "SUCCESS"

	// CodePathError: unresolved or structurally invalid path, including
	// rename/move collisions and move cycles.
	CodePathError ErrorCode = "PATH_ERROR"

	// CodeTypeError: value presence/absence or tag mismatch against the
	// endpoint kind.
	CodeTypeError ErrorCode = "TYPE_ERROR"

	// CodeConstraintError: value fails the endpoint's range or allowed set.
	CodeConstraintError ErrorCode = "CONSTRAINT_ERROR"

	// CodeReentranceError: the endpoint is already being set further up
	// the same call chain.
	CodeReentranceError ErrorCode = "REENTRANCE_ERROR"

	// CodeInputError: malformed external identifier or name.
	CodeInputError ErrorCode = "INPUT_ERROR"

	// CodeFailed: internal inconsistency or collaborator failure.
	CodeFailed ErrorCode = "FAILED"
)

var wireCodes = map[ErrorCode]int{
	CodeSuccess:         0,
	CodePathError:       1,
	CodeTypeError:       2,
	CodeConstraintError: 3,
	CodeReentranceError: 4,
	CodeInputError:      5,
	CodeFailed:          6,
}

// Wire returns the numeric form used by the HTTP transport.
func (c ErrorCode) Wire() int {
	if n, ok := wireCodes[c]; ok {
		return n
	}
	return wireCodes[CodeFailed]
}

// CommandError is the error value every rejected command returns.
//
// Commands never partially mutate the tree: when a CommandError is
// returned, nothing was committed.
type CommandError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the path the command was addressed to, if any.
	Path ir.Path

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if !e.Path.IsRoot() {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, path ir.Path, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...), Path: path}
}

func wrapError(code ErrorCode, path ir.Path, err error, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...), Path: path, Err: err}
}

// NewInputError is used by transports that fail to parse an identifier
// before a command can even be built.
func NewInputError(format string, args ...any) *CommandError {
	return newError(CodeInputError, ir.Path{}, format, args...)
}

// CodeOf maps any error to its code: SUCCESS for nil, FAILED for errors
// that are not CommandErrors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeFailed
}

// IsPathError returns true if the error is a PATH_ERROR.
func IsPathError(err error) bool { return CodeOf(err) == CodePathError }

// IsTypeError returns true if the error is a TYPE_ERROR.
func IsTypeError(err error) bool { return CodeOf(err) == CodeTypeError }

// IsConstraintError returns true if the error is a CONSTRAINT_ERROR.
func IsConstraintError(err error) bool { return CodeOf(err) == CodeConstraintError }

// IsReentranceError returns true if the error is a REENTRANCE_ERROR.
func IsReentranceError(err error) bool { return CodeOf(err) == CodeReentranceError }

// IsInputError returns true if the error is an INPUT_ERROR.
func IsInputError(err error) bool { return CodeOf(err) == CodeInputError }
