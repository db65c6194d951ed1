package entity

import (
	"errors"
	"fmt"
)

// Entity errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrPersistence    = errors.New("persistence error")
	ErrUnknownField   = errors.New("unknown field")
	ErrImmutableField = errors.New("field is immutable")
	ErrInvalidValue   = errors.New("invalid field value")
	ErrNotPersisted   = errors.New("entity has not been saved")
)

// NotFoundError is returned when an exactly-one lookup matched no rows.
type NotFoundError struct {
	Kind  string
	Query Filter
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("query %s returned no %s entity", e.Query, e.Kind)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps a database failure. The unit of work it
// occurred in has been rolled back by the time it is returned.
type PersistenceError struct {
	Op   string
	Kind string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
