// Package apperr classifies failures of the rate-card workflow into the kinds a
// presentation layer needs to react to. Every kind is recoverable.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a class of failure.
type Kind string

const (
	// KindLoad means the rate card provider was unreachable or reported failure.
	KindLoad Kind = "load"
	// KindValidation means user input must be corrected before retrying.
	KindValidation Kind = "validation"
	// KindUpstream means the AI provider call failed.
	KindUpstream Kind = "upstream"
	// KindProtocol means the AI reply did not have the expected structure.
	KindProtocol Kind = "protocol"
	// KindConflict means the operation is not allowed in the current state.
	KindConflict Kind = "conflict"
	// KindNotFound means the addressed resource does not exist.
	KindNotFound Kind = "not_found"
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Violations) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Violations, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a user-facing message.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation returns a validation error listing every violation found.
func Validation(msg string, violations ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Violations: violations}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message for err, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if len(e.Violations) > 0 {
			return e.Message + ": " + strings.Join(e.Violations, "; ")
		}
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
