package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input the services refuse to act on.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a product, order or group that does not exist.
	ErrNotFound = errors.New("not found")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
