// Package apperr classifies failures into the kinds the controller
// reports to users: validation, auth, network, completion,
// persistence, not-found.
package apperr

import (
	"errors"
	"fmt"
)

// Kind labels a failure class.
type Kind string

const (
	Validation  Kind = "validation"
	Auth        Kind = "auth"
	Network     Kind = "network"
	Completion  Kind = "completion"
	Persistence Kind = "persistence"
	NotFound    Kind = "not_found"
)

// Error wraps a cause with its kind. It is the only error type the
// client and controller packages return.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error without a wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, or empty string when err is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
