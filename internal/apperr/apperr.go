// Package apperr defines the error kinds the service surfaces to callers.
// Transport maps kinds to HTTP status codes; services and the store only deal
// in kinds.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuthFailed
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthFailed:
		return "auth_failed"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string) error { return New(KindValidation, message) }
func Conflict(message string) error   { return New(KindConflict, message) }
func AuthFailed(message string) error { return New(KindAuthFailed, message) }
func Forbidden(message string) error  { return New(KindForbidden, message) }
func NotFound(message string) error   { return New(KindNotFound, message) }

// KindOf walks the wrap chain and returns the kind of the first *Error found,
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
