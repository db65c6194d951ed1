// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/flaskbasic/basicapp/internal/entity"
	"github.com/flaskbasic/basicapp/internal/metrics"
)

// Service errors.
var (
	ErrInvalidName       = errors.New("name must be 1-80 characters")
	ErrInvalidAge        = errors.New("age must be a non-negative integer")
	ErrUserNotFound      = errors.New("user not found")
	ErrDependentNotFound = errors.New("dependent not found")
)

const maxNameLength = 80

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > maxNameLength {
		return ErrInvalidName
	}
	return nil
}

func validateAge(age int64) error {
	if age < 0 {
		return ErrInvalidAge
	}
	return nil
}

// validateFields checks the values of an update field map that target
// nameColumn or ageColumn. Other columns are left to the store.
func validateFields(fields map[string]any, nameColumn, ageColumn string) error {
	if v, ok := fields[nameColumn]; ok {
		name, err := entity.AsString(v)
		if err != nil {
			return ErrInvalidName
		}
		if err := validateName(name); err != nil {
			return err
		}
	}
	if v, ok := fields[ageColumn]; ok {
		age, err := entity.AsInt64(v)
		if err != nil {
			return ErrInvalidAge
		}
		if err := validateAge(age); err != nil {
			return err
		}
	}
	return nil
}

// outcome labels a write for metrics.
func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
