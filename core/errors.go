package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input: a date, a time window, an empty payload...
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err NotFoundError) Error() string { return err.msg }

// ConflictError reports a uniqueness or overlap violation.
// Details holds what the write collided with (existing schedules, already recorded students...).
type ConflictError struct {
	Err     error
	Details interface{}
}

func NewConflictError(err error, details interface{}) error {
	return &ConflictError{Err: err, Details: details}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

func (err ConflictError) Unwrap() error { return err.Err }

// StorageError wraps any failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError returns nil if err is nil.
func NewStorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (err StorageError) Error() string {
	if err.Op == "" {
		return err.Err.Error()
	}
	return err.Op + ": " + err.Err.Error()
}

func (err StorageError) Unwrap() error { return err.Err }

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsValidation also reports struct validation failures (validator.ValidationErrors).
func IsValidation(err error) bool {
	var target *ValidationError
	var vErrs validator.ValidationErrors
	return errors.As(err, &target) || errors.As(err, &vErrs)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
