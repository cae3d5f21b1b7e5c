// Package verrors defines Vertex's structured error taxonomy. Errors the
// module raises itself are *verrors.Error values, matched by kind rather
// than by sentinel identity; a context cancellation error can still reach
// a caller unwrapped (scanner.Scanner.WaitForCompletion returns ctx.Err()).
package verrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure by category, not by identity.
type Kind string

const (
	InvalidParameter Kind = "invalid parameter"
	NotFound         Kind = "not found"
	AlreadyExists    Kind = "already exists"
	LimitReached     Kind = "limit reached"
	ResourceBusy     Kind = "resource busy"
	Unsupported      Kind = "unsupported"
	IoFailed         Kind = "io failed"
	ProtocolViolation Kind = "protocol violation"
	Aborted          Kind = "aborted"
)

// Error is Vertex's structured error type: an operation name, a kind, an
// optional human message, and an optional wrapped cause.
type Error struct {
	Op   string // e.g. "scanner.FirstScan", "breakpoint.SetHardware"
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("vertex: %s: %s: %v", e.Op, msg, e.Err)
		}
		return fmt.Sprintf("vertex: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("vertex: %s", msg)
}

// Unwrap supports errors.Is/errors.As over the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparisons against another *Error of the same
// Kind, regardless of Op/Msg/Err, mirroring ublk.Error.Is's "same code"
// matching semantics.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New builds an Error with no wrapped cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Wrap attaches op/kind context to an existing error. If err is already a
// *Error, its Kind is preserved unless kind is explicitly non-empty, and
// the Op is updated to reflect the new boundary crossed - the same
// "re-tag at each boundary" behavior as ublk.WrapError.
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	var inner *Error
	if errors.As(err, &inner) {
		k := inner.Kind
		if kind != "" {
			k = kind
		}
		return &Error{Op: op, Kind: k, Msg: inner.Msg, Err: inner.Err}
	}
	return &Error{Op: op, Kind: kind, Msg: err.Error(), Err: err}
}

// Of reports whether err is a *Error of the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
