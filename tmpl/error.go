package tmpl

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrUnterminated        = NewError("unterminated directive")
	ErrUnknownDirective    = NewError("unknown directive")
	ErrUnexpectedDirective = NewError("unexpected directive")
	ErrUnclosedBlock       = NewError("unclosed block")
	ErrExpression          = NewError("invalid expression")
	ErrUnknownFunction     = NewError("unknown function")
	ErrUnknownField        = NewError("unknown field")
	ErrInvalidValue        = NewError("invalid field value")
	ErrReadInput           = NewError("failed to read input")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an Error with the same message, so errors
// derived from a sentinel with Wrap or With still match it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.err == nil && t.msg == e.msg
}

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping err.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, attrs: e.attrs}
}

// Wrapf creates a new Error wrapping a formatted error.
func (e *Error) Wrapf(format string, args ...any) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// With returns a copy of the error carrying additional attributes.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{msg: e.msg, err: e.err, attrs: newAttrs}
}

// SyntaxError reports a malformed directive. It identifies the offending
// directive text and its position in the template source.
type SyntaxError struct {
	Err       *Error
	Name      string
	Pos       Position
	Directive string
	Source    string
}

// Error implements the error interface. The message is followed by the
// offending source line with a caret under the directive.
func (e *SyntaxError) Error() string {
	var sb strings.Builder

	if e.Name != "" {
		sb.WriteString(e.Name)
		sb.WriteByte(':')
	}

	sb.WriteString(e.Pos.String())
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())

	if e.Directive != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Directive)
	}

	if snippet := e.Snippet(); snippet != "" {
		sb.WriteByte('\n')
		sb.WriteString(snippet)
	}

	return sb.String()
}

// Snippet returns the source line containing the error and a caret marking
// its column, or "" if the position is outside the source.
func (e *SyntaxError) Snippet() string {
	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line < 1 || e.Pos.Line > len(lines) {
		return ""
	}

	num := strconv.Itoa(e.Pos.Line)
	line := strings.TrimRight(lines[e.Pos.Line-1], "\r")

	var sb strings.Builder

	sb.WriteString("  ")
	sb.WriteString(num)
	sb.WriteString(" | ")
	sb.WriteString(line)
	sb.WriteByte('\n')

	// 2 leading spaces + " | "
	sb.WriteString(strings.Repeat(" ", len(num)+5))

	if e.Pos.Column > 1 {
		sb.WriteString(strings.Repeat(" ", e.Pos.Column-1))
	}

	sb.WriteByte('^')

	return sb.String()
}

// Unwrap returns the sentinel describing the error class.
func (e *SyntaxError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("template", e.Name),
		slog.Int("line", e.Pos.Line),
		slog.Int("column", e.Pos.Column),
		slog.String("directive", e.Directive),
		slog.Any("error", e.Err),
	)
}
