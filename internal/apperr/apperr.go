// Package apperr defines the error type shared by all boxctl components.
// Lower layers wrap their failures into an Error at component boundaries so
// command handlers can render a one-line summary, an optional hint, and any
// multi-line diagnostic detail separately.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for rendering and exit-code purposes.
type Kind string

const (
	// Validation covers bad input and policy-denied requests.
	Validation Kind = "validation"
	// NotFound means a named instance does not exist.
	NotFound Kind = "not_found"
	// Dependency means the external runtime binary is missing or not running.
	Dependency Kind = "dependency"
	// Runtime covers execution failures, timeouts, and parse failures.
	Runtime Kind = "runtime"
)

// Error is the one typed error all components normalize to.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Detail  string // multi-line diagnostic payload (log tails, stderr, arithmetic)
	Err     error  // wrapped cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint returns a copy of e carrying the given hint.
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Hint = hint
	return &c
}

// WithDetail returns a copy of e carrying the given diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = strings.TrimRight(detail, "\n")
	return &c
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind with a wrapped cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// As extracts an *Error from err, or wraps err as a Runtime error so callers
// always have kind/detail fields to render.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: Runtime, Message: err.Error(), Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
