// Package errors defines the structured error type shared by every layer of
// the plugin host.
package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes the error
type Kind string

const (
	KindLoadFailure           Kind = "load_failure"
	KindConfigurationMismatch Kind = "configuration_mismatch"
	KindUnsupported           Kind = "unsupported"
	KindCapacityExceeded      Kind = "capacity_exceeded"
	KindAlreadyOpen           Kind = "already_open"
	KindThreadDiscipline      Kind = "thread_discipline"
	KindMalformed             Kind = "malformed"
	KindNotFound              Kind = "not_found"
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause  error
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same Kind. A target with an empty Op
// matches any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Sentinels for errors.Is checks.
var (
	ErrLoadFailure           = &Error{Kind: KindLoadFailure}
	ErrConfigurationMismatch = &Error{Kind: KindConfigurationMismatch}
	ErrUnsupported           = &Error{Kind: KindUnsupported}
	ErrCapacityExceeded      = &Error{Kind: KindCapacityExceeded}
	ErrAlreadyOpen           = &Error{Kind: KindAlreadyOpen}
	ErrThreadDiscipline      = &Error{Kind: KindThreadDiscipline}
	ErrMalformed             = &Error{Kind: KindMalformed}
	ErrNotFound              = &Error{Kind: KindNotFound}
)

// New creates an error of the given kind
func New(kind Kind, op, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap attaches a cause to a new error of the given kind
func Wrap(kind Kind, op string, cause error, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Cause: cause}
}

// LoadFailure reports a plugin that could not be loaded.
func LoadFailure(op string, cause error, detail string, args ...any) *Error {
	e := New(KindLoadFailure, op, detail, args...)
	e.Cause = cause
	return e
}

// Unsupported reports a feature absent in a format or plugin.
func Unsupported(op, what string) *Error {
	return &Error{Kind: KindUnsupported, Op: op, Detail: what}
}

// Malformed reports data that could not be decoded.
func Malformed(op, detail string, args ...any) *Error {
	return New(KindMalformed, op, detail, args...)
}

// CapacityExceeded reports a fixed-capacity container overflow.
func CapacityExceeded(op string, capacity int) *Error {
	return &Error{Kind: KindCapacityExceeded, Op: op, Detail: fmt.Sprintf("capacity %d reached", capacity)}
}

// Mismatch reports buffers that disagree with the cached IO configuration.
func Mismatch(detail string, args ...any) *Error {
	return New(KindConfigurationMismatch, "io", detail, args...)
}

// NotFound reports a missing item such as a plugin id in a file.
func NotFound(op, what, name string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Detail: fmt.Sprintf("%s %q not found", what, name)}
}

// IsKind reports whether err, or anything it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
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
