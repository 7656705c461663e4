package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a catalog error so callers can decide whether the
// input must change, the request can be retried, or stored data is broken.
type ErrorKind string

const (
	// KindValidation: a required field is missing or malformed. Caller fixes input.
	KindValidation ErrorKind = "validation"
	// KindHierarchy: a category depth or cycle constraint would be violated.
	KindHierarchy ErrorKind = "hierarchy"
	// KindImageConstraint: more than one image marked as the primary image.
	KindImageConstraint ErrorKind = "image_constraint"
	// KindDependency: delete blocked by existing subcategories or products.
	KindDependency ErrorKind = "dependency"
	// KindNotFound: a referenced id does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindConsistency: stored data violates an invariant that should have been
	// rejected at write time. Logged as a defect.
	KindConsistency ErrorKind = "consistency"
	// KindTransient: storage I/O timeout or conflict. Safe to retry with backoff.
	KindTransient ErrorKind = "transient"
)

// Error is the typed error returned by catalog operations. It always names
// the entity and, where applicable, the offending field or entity id so that
// rejections are actionable rather than bare failures.
type Error struct {
	Kind     ErrorKind
	Entity   string
	EntityID string
	Field    string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Entity != "" {
		msg = e.Entity + " " + msg
	}
	if e.EntityID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.EntityID)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match two catalog errors by kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a catalog error for the given entity.
func NewError(kind ErrorKind, entity, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message}
}

// WithID attaches the offending entity id.
func (e *Error) WithID(id string) *Error {
	e.EntityID = id
	return e
}

// WithField attaches the offending field name.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithCause attaches the underlying error for unwrapping.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// KindOf returns the kind of err if it is (or wraps) a catalog error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a catalog error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
