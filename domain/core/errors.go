package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Source errors: the measurement store is unreachable or malformed
	ErrSource = errors.New("data source error")

	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRunNotFound       = fmt.Errorf("%w: run", ErrNotFound)
	ErrParameterNotFound = fmt.Errorf("%w: parameter", ErrNotFound)
	ErrTableNotFound     = fmt.Errorf("%w: result table", ErrNotFound)
	ErrAxisNotFound      = fmt.Errorf("%w: axis", ErrNotFound)

	// Decode errors: binary payload cannot be parsed as a complex value
	ErrDecode = errors.New("binary payload cannot be decoded")

	// Empty data errors: catalog or series has zero entries where one was expected
	ErrEmptyData = errors.New("no data available")
)

// Error constructors with context
func NewSourceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSource, op, err)
}

func NewNotFoundError(resource string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, resource, id)
}

func NewDecodeError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDecode, reason)
}

func NewEmptyDataError(what string) error {
	return fmt.Errorf("%w: %s", ErrEmptyData, what)
}

// Error checking helpers
func IsSourceError(err error) bool {
	return errors.Is(err, ErrSource)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

func IsEmptyDataError(err error) bool {
	return errors.Is(err, ErrEmptyData)
}
