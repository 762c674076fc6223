package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/campusiq-portal/internal/apiclient"
	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/utils"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeClient       ErrorType = "client"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]any

	// Status is the API's own status for ErrorTypeClient
	Status int
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]any),
	}
}

// Translate classifies a failure from the API client, the session or
// request parsing. Errors that are already domain errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	if utils.IsValidationError(err) {
		out := NewDomainError(ErrorTypeValidation, "Validation failed", err)
		for field, msg := range utils.GetValidationFields(err) {
			out.WithDetail(field, msg)
		}
		return out
	}

	// exhausted retries outrank the auth reason that may wrap them
	if apiclient.IsExhausted(err) || auth.ReasonOf(err) == auth.ReasonBackend {
		return NewDomainError(ErrorTypeExternal, "CampusIQ API unavailable", err)
	}

	if auth.IsAuthError(err) {
		out := NewDomainError(ErrorTypeUnauthorized, "Authentication failed", err)
		return out.WithDetail("reason", string(auth.ReasonOf(err)))
	}

	var clientErr *apiclient.ClientError
	if errors.As(err, &clientErr) {
		out := NewDomainError(ErrorTypeClient, http.StatusText(clientErr.StatusCode), err)
		out.Status = clientErr.StatusCode
		return out
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewDomainError(ErrorTypeUnavailable, "Request did not complete in time", err)
	}

	return WrapInternal("unexpected failure", err)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsClientError checks if an error is a rejection by the API
func IsClientError(err error) bool {
	return GetErrorType(err) == ErrorTypeClient
}

// IsExternalError checks if an error is an upstream failure
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsUnavailableError checks if an error is a timeout or cancellation
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]any {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorStatus returns the API status carried by a client error, or 0
func GetErrorStatus(err error) int {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status
	}
	return 0
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an upstream failure
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
