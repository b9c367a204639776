package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrMissingCursor  = fmt.Errorf("%w: page cursor not recorded", ErrValidation)
	ErrRemoteQuery    = errors.New("remote query failed")
	ErrRemoteWrite    = errors.New("remote write failed")
	ErrAuth           = errors.New("authentication failed")
	ErrForbidden      = errors.New("forbidden")
	ErrPaymentSession = errors.New("payment session failed")
)

// Invalid returns an error that matches ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
