package auth

import (
	"errors"
	"fmt"
)

// Reason classifies an AuthError
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonInactive           Reason = "inactive"
	ReasonExpired            Reason = "expired"
	ReasonBackend            Reason = "backend"
)

// AuthError is returned when login or identity resolution fails.
// It is never retried by the session.
type AuthError struct {
	Reason Reason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ReasonOf returns the reason carried by err, or "" if err is not an AuthError
func ReasonOf(err error) Reason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}
