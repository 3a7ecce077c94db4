package pkg

// Sentinel errors shared by the command-line packages.
// They can be tested with errors.Is.

import (
	"fmt"
	"slices"
	"strings"
)

// Error represents a chain of errors.
type Error []error

// ErrReadInput is returned when reading a template, token table or field
// file fails. It should wrap the underlying I/O error.
var ErrReadInput = MakeErrorf("failed to read input")

// ErrWriteOutput is returned when writing generated output fails.
var ErrWriteOutput = MakeErrorf("failed to write output")

// ErrParse is returned when a template or data file cannot be parsed.
var ErrParse = MakeErrorf("parse error")

// ErrInvalidFormat is returned when an unsupported output format is
// requested. It should be wrapped with the list of valid formats.
var ErrInvalidFormat = MakeErrorf("invalid format")

// ErrInvalidAssignment is returned for a malformed key=value field
// assignment.
var ErrInvalidAssignment = MakeErrorf("invalid field assignment")

// ErrNotFound is returned when a named file or block cannot be located.
var ErrNotFound = MakeErrorf("not found")

// ErrConfigExists is returned when refusing to overwrite a configuration
// file.
var ErrConfigExists = MakeErrorf("configuration file exists")

// ErrCheckFailed is returned when one or more templates fail to parse.
var ErrCheckFailed = MakeErrorf("template check failed")

// MakeError constructs an Error from the given non-nil errors.
// The first argument is the innermost error in the chain.
func MakeError(errs ...error) Error {
	var e Error

	for _, err := range errs {
		if err != nil {
			e = append(e, err)
		}
	}

	return e
}

// MakeErrorf constructs an Error from a formatted error message.
func MakeErrorf(format string, args ...any) Error {
	return MakeError(fmt.Errorf(format, args...))
}

// Error returns all errors in the chain separated by ": ", innermost first.
func (e Error) Error() string {
	var sb strings.Builder

	for i, err := range slices.All(e) {
		if i > 0 {
			sb.WriteString(": ")
		}

		sb.WriteString(err.Error())
	}

	return sb.String()
}

// Wrap returns a copy of the receiver with err appended.
func (e Error) Wrap(err ...error) Error {
	return append(slices.Clip(e), MakeError(err...)...)
}

// Wrapf returns a copy of the receiver with a formatted error appended.
func (e Error) Wrapf(format string, args ...any) Error {
	return append(slices.Clip(e), fmt.Errorf(format, args...))
}

// Unwrap returns the errors contained in the receiver.
func (e Error) Unwrap() []error {
	return e
}

// Is reports whether target is an Error whose chain is a prefix of the
// receiver's chain, so a wrapped sentinel still matches the sentinel.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok || len(t) == 0 || len(t) > len(e) {
		return false
	}

	for i := range t {
		if t[i] != e[i] {
			return false
		}
	}

	return true
}
