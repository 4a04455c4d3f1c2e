package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values). One sentinel exists per kind in the
// interpreter's error taxonomy so callers can classify failures with
// [errors.Is] without inspecting message text.
var (
	ErrSyntax            = NewError("syntax error")
	ErrUnknownForm       = NewError("unknown top-level form")
	ErrDuplicate         = NewError("duplicate definition")
	ErrBadForm           = NewError("malformed form")
	ErrType              = NewError("value not allowed by type")
	ErrUndefinedVariable = NewError("undefined variable")
	ErrCircular          = NewError("circular reference")
	ErrMaxDepth          = NewError("interpolation depth exceeded")
	ErrUnresolved        = NewError("unresolved placeholder")
	ErrExternalCommand   = NewError("external command failed")
	ErrUnknownTask       = NewError("unknown task or group")
	ErrNonLiteralQuoted  = NewError("non-literal value in quoted list")
	ErrReadInput         = NewError("failed to read input")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError adapts an arbitrary error to an Error so it logs structurally:
// an Error passes through unchanged, anything else wraps as the cause. The
// wrapped chain is preserved for [errors.Is] and [errors.As].
func WrapError(err error) *Error {
	if ee, ok := err.(*Error); ok {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	msg := strings.Join(part, ": ")

	if detail := e.describeAttrs(); detail != "" {
		msg += " (" + detail + ")"
	}

	return msg
}

// describeAttrs renders the attached attributes for the plain-text error
// message, so diagnostics remain useful even without a structured handler.
func (e *Error) describeAttrs() string {
	part := make([]string, 0, len(e.attrs))

	for _, a := range e.attrs {
		part = append(part, a.Key+"="+a.Value.String())
	}

	return strings.Join(part, " ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is this error or shares its base message,
// so wrapped copies created by [Error.With] still match their sentinel.
func (e *Error) Is(target error) bool {
	te := &Error{}
	if !errors.As(target, &te) {
		return false
	}

	return e.msg == te.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
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

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// withPos attaches a source position to the error's attributes.
func (e *Error) withPos(pos Position) *Error {
	if pos.Line <= 0 {
		return e
	}

	return e.With(
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
	)
}

// SyntaxError reports malformed S-expression source text. It records the
// offending position and renders a caret snippet of the source line.
type SyntaxError struct {
	Msg    string
	Pos    Position
	Source string // The original source input
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var buf strings.Builder

	buf.WriteString("syntax error at line ")
	buf.WriteString(strconv.Itoa(e.Pos.Line))
	buf.WriteString(", column ")
	buf.WriteString(strconv.Itoa(e.Pos.Column))
	buf.WriteString(": ")
	buf.WriteString(e.Msg)

	if snippet := e.snippet(); snippet != "" {
		buf.WriteString("\n")
		buf.WriteString(snippet)
	}

	return buf.String()
}

// Unwrap ties every SyntaxError to the [ErrSyntax] sentinel.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// snippet formats the offending source line with a column marker.
func (e *SyntaxError) snippet() string {
	if e.Source == "" || e.Pos.Line <= 0 {
		return ""
	}

	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line > len(lines) {
		return ""
	}

	var src strings.Builder

	num := strconv.Itoa(e.Pos.Line)

	src.WriteString("  ")
	src.WriteString(num)
	src.WriteString(" | ")
	src.WriteString(lines[e.Pos.Line-1])
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(num)+5)
	if e.Pos.Column > 0 {
		padding += strings.Repeat(" ", e.Pos.Column-1)
	}

	src.WriteString(padding + "^")

	return src.String()
}
