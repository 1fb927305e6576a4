package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an operational failure so callers can map it to a
// transport-level response without inspecting message text.
type Kind int

const (
	// KindValidation marks malformed or missing input. Never retried.
	KindValidation Kind = iota
	// KindConflict marks duplicate unique fields or mutation of a
	// terminal record.
	KindConflict
	// KindInvalidTransition marks an illegal state machine move.
	KindInvalidTransition
	// KindNotFound marks an unknown record id.
	KindNotFound
	// KindForbidden marks an access gate denial.
	KindForbidden
	// KindTransactionAbort marks an aborted store transaction. The
	// matcher retries these a bounded number of times.
	KindTransactionAbort
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindTransactionAbort:
		return "transaction_abort"
	}
	return "unknown"
}

// Error is a typed operational failure.
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

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Transitionf builds an invalid transition error.
func Transitionf(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not found error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a forbidden error. Messages must not leak details
// of the denied resource.
func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Abortf builds a transaction abort error wrapping cause.
func Abortf(cause error, format string, args ...any) error {
	return &Error{Kind: KindTransactionAbort, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func is(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsInvalidTransition reports whether err is an invalid transition error.
func IsInvalidTransition(err error) bool { return is(err, KindInvalidTransition) }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return is(err, KindForbidden) }

// IsAbort reports whether err is a transaction abort.
func IsAbort(err error) bool { return is(err, KindTransactionAbort) }
