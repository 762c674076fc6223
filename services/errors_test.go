package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/campusiq-portal/internal/apiclient"
	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/utils"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name:    "error with wrapped error",
			err:     NewDomainError(ErrorTypeExternal, "api down", errors.New("dial tcp")),
			wantMsg: "external: api down (dial tcp)",
		},
		{
			name:    "error without wrapped error",
			err:     NewDomainError(ErrorTypeValidation, "invalid input", nil),
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_IsAndUnwrap(t *testing.T) {
	base := errors.New("base error")
	err := fmt.Errorf("page: %w", NewDomainError(ErrorTypeInternal, "internal error", base))

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, &DomainError{Type: ErrorTypeInternal})
	assert.NotErrorIs(t, err, &DomainError{Type: ErrorTypeExternal})
}

func TestTranslate(t *testing.T) {
	exhausted := &apiclient.RequestExhaustedError{
		Endpoint: "/api/admin/dashboard",
		Attempts: 3,
		Last:     &apiclient.ServerError{Endpoint: "/api/admin/dashboard", StatusCode: 503},
	}
	notFound := &apiclient.ClientError{Endpoint: "/api/courses/9", StatusCode: http.StatusNotFound}

	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"email": "email is required"}}, ErrorTypeValidation, 0},
		{"exhausted", exhausted, ErrorTypeExternal, 0},
		{"rejected login", &auth.AuthError{Reason: auth.ReasonInvalidCredentials}, ErrorTypeUnauthorized, 0},
		{"backend auth failure", &auth.AuthError{Reason: auth.ReasonBackend, Err: exhausted}, ErrorTypeExternal, 0},
		{"client error keeps status", fmt.Errorf("page: %w", notFound), ErrorTypeClient, http.StatusNotFound},
		{"deadline", context.DeadlineExceeded, ErrorTypeUnavailable, 0},
		{"unknown", errors.New("boom"), ErrorTypeInternal, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantType, GetErrorType(got))
			assert.Equal(t, tt.wantStatus, GetErrorStatus(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Translate(nil))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		original := WrapExternal("invalid payload", nil)
		assert.Same(t, original, Translate(original))
	})

	t.Run("validation fields become details", func(t *testing.T) {
		got := Translate(&utils.ValidationError{Fields: map[string]string{"id": "id must be a positive integer"}})
		assert.Equal(t, "id must be a positive integer", GetErrorDetails(got)["id"])
	})

	t.Run("auth reason becomes a detail", func(t *testing.T) {
		got := Translate(&auth.AuthError{Reason: auth.ReasonInactive})
		assert.True(t, IsUnauthorizedError(got))
		assert.Equal(t, "inactive", GetErrorDetails(got)["reason"])
	})
}

func TestHelpersOnForeignErrors(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, ErrorType(""), GetErrorType(err))
	assert.Nil(t, GetErrorDetails(err))
	assert.Zero(t, GetErrorStatus(err))
	assert.False(t, IsValidationError(err))
	assert.False(t, IsClientError(err))
	assert.False(t, IsUnavailableError(err))
}
