package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation so callers (CLI, HTTP layer) can
// map it to an exit code or status without parsing messages.
type ErrorKind int

const (
	// KindNotFound: a referenced book, author, or borrowing id does not exist.
	KindNotFound ErrorKind = iota + 1
	// KindBadRequest: a business rule or validation rejected the operation.
	KindBadRequest
	// KindConflict: the operation lost to concurrent state it cannot override.
	KindConflict
)

// Error is a classified domain error. Messages always name the offending
// identifier.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func badRequestf(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsBadRequest reports whether err is a validation or business-rule error.
func IsBadRequest(err error) bool { return isKind(err, KindBadRequest) }

// IsConflict reports whether err is a concurrency or integrity conflict.
func IsConflict(err error) bool { return isKind(err, KindConflict) }
