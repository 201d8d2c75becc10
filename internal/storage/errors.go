package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure so transport layers can map it to a
// response code without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindInvalidInput
	KindInvalidState
	KindConflict
	KindUpstream
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream_failure"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// Error carries a kind alongside the message. It supports errors.As and
// wraps an underlying cause when one exists.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func ForbiddenError(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func InvalidInputError(format string, args ...any) error {
	return newError(KindInvalidInput, format, args...)
}

func InvalidStateError(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

func ConflictError(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// UpstreamError wraps a dependency failure (media host, session store).
func UpstreamError(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// PartialFailureError marks a multi-document mutation that applied some but
// not all of its writes. The snapshot store never produces it; drivers
// without snapshot semantics report reconciliation work through it.
func PartialFailureError(msg string, err error) error {
	return &Error{Kind: KindPartialFailure, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
