package entity

import (
	"fmt"
	"math"
	"strconv"
)

// Field describes one domain column of T: its name and how to read,
// scan and assign it without reflection.
type Field[T any] struct {
	Column string

	get func(*T) any
	ptr func(*T) any
	set func(*T, any) error
}

// Value returns the column value of e.
func (f Field[T]) Value(e *T) any {
	return f.get(e)
}

// ScanDest returns a pointer suitable for sql.Row.Scan.
func (f Field[T]) ScanDest(e *T) any {
	return f.ptr(e)
}

// Assign converts v and stores it on e.
func (f Field[T]) Assign(e *T, v any) error {
	if err := f.set(e, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.Column, err)
	}
	return nil
}

// StringField declares a text column.
func StringField[T any](column string, ref func(*T) *string) Field[T] {
	return Field[T]{
		Column: column,
		get:    func(e *T) any { return *ref(e) },
		ptr:    func(e *T) any { return ref(e) },
		set: func(e *T, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			*ref(e) = s
			return nil
		},
	}
}

// IntField declares an integer column.
func IntField[T any](column string, ref func(*T) *int) Field[T] {
	return Field[T]{
		Column: column,
		get:    func(e *T) any { return *ref(e) },
		ptr:    func(e *T) any { return ref(e) },
		set: func(e *T, v any) error {
			n, err := AsInt64(v)
			if err != nil {
				return err
			}
			*ref(e) = int(n)
			return nil
		},
	}
}

// NullInt64Field declares a nullable integer column, such as a foreign key.
func NullInt64Field[T any](column string, ref func(*T) **int64) Field[T] {
	return Field[T]{
		Column: column,
		get: func(e *T) any {
			if p := *ref(e); p != nil {
				return *p
			}
			return nil
		},
		ptr: func(e *T) any { return ref(e) },
		set: func(e *T, v any) error {
			if isAbsent(v) {
				*ref(e) = nil
				return nil
			}
			n, err := AsInt64(v)
			if err != nil {
				return err
			}
			*ref(e) = &n
			return nil
		},
	}
}

// AsString converts v to a string.
func AsString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case *string:
		if s == nil {
			return "", fmt.Errorf("nil string")
		}
		return *s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

// AsInt64 converts integer-like values, including whole float64 values
// produced by JSON decoding and numeric strings from query parameters.
func AsInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case *int64:
		if n == nil {
			return 0, fmt.Errorf("nil integer")
		}
		return *n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		if n >= float64(math.MaxInt64) || n < float64(math.MinInt64) {
			return 0, fmt.Errorf("integer %v out of range", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
