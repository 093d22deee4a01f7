package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("daily message limit reached")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage failure")
	ErrBackend      = errors.New("advice backend failure")
	ErrConnection   = errors.New("document store connection failure")
)

// ValidationError describes a rejected input field. It matches ErrInvalidInput.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// StorageError wraps a failed store operation. It matches ErrStorage and
// unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// StorageFailure wraps err as a StorageError for op. A nil err stays nil and
// ErrNotFound passes through untouched.
func StorageFailure(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
