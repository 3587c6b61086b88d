package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Credential store errors
	ErrKeyNotFound        = errors.New("key not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Session errors
	ErrNoCredential   = errors.New("no bearer credential")
	ErrRenewalFailed  = errors.New("credential renewal failed")
	ErrSessionExpired = errors.New("session expired")

	// Response errors
	ErrNotJSON   = errors.New("response body is not JSON")
	ErrEmptyBody = errors.New("response body is empty")

	// Form errors
	ErrBusy       = errors.New("a submission is already pending")
	ErrValidation = errors.New("validation failed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
