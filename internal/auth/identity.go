package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/campusiq-portal/internal/apiclient"
	"github.com/upb/campusiq-portal/models"
)

const (
	loginEndpoint = "/api/auth/login"
	meEndpoint    = "/api/auth/me"
)

// LoginCredential is the body accepted by the login endpoint
type LoginCredential struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// IdentityProvider exchanges credentials for tokens and tokens for principals
type IdentityProvider interface {
	// Authenticate returns a fresh access token for the credential
	Authenticate(ctx context.Context, cred LoginCredential) (string, error)

	// Resolve returns the principal owning token
	Resolve(ctx context.Context, token string) (*models.Principal, error)
}

// APIIdentity is an IdentityProvider backed by the CampusIQ API
type APIIdentity struct {
	client *apiclient.Client
}

// NewAPIIdentity creates a new APIIdentity
func NewAPIIdentity(client *apiclient.Client) *APIIdentity {
	return &APIIdentity{client: client}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type meResponse struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Authenticate posts the credential to the login endpoint.
// Login is a single attempt; a failed login is reported, never replayed.
func (a *APIIdentity) Authenticate(ctx context.Context, cred LoginCredential) (string, error) {
	payload, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("failed to encode login: %w", err)
	}

	resp, err := a.client.Request(ctx, loginEndpoint, apiclient.RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
	}, 1)
	if err != nil {
		return "", classify(err, ReasonInvalidCredentials)
	}

	var tok tokenResponse
	if err := resp.DecodeJSON(&tok); err != nil {
		return "", &AuthError{Reason: ReasonBackend, Err: err}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Reason: ReasonBackend, Err: errors.New("login response carried no access token")}
	}
	return tok.AccessToken, nil
}

// Resolve fetches the current user for token. An inactive account or an
// unknown role is rejected.
func (a *APIIdentity) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	resp, err := a.client.Do(ctx, meEndpoint, apiclient.RequestOptions{
		Method:  http.MethodGet,
		Headers: map[string]string{"Authorization": "Bearer " + token},
	})
	if err != nil {
		return nil, classify(err, ReasonExpired)
	}

	var me meResponse
	if err := resp.DecodeJSON(&me); err != nil {
		return nil, &AuthError{Reason: ReasonBackend, Err: err}
	}
	if !me.IsActive {
		return nil, &AuthError{Reason: ReasonInactive}
	}
	role, err := models.ParseRole(me.Role)
	if err != nil {
		return nil, &AuthError{Reason: ReasonBackend, Err: err}
	}

	return models.NewPrincipal(me.ID, me.Email, me.FullName, role, token), nil
}

// classify maps an API failure to an AuthError. unauthorized is the reason
// used for a 401.
func classify(err error, unauthorized Reason) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch apiclient.StatusCode(err) {
	case http.StatusUnauthorized:
		return &AuthError{Reason: unauthorized, Err: err}
	case http.StatusForbidden:
		return &AuthError{Reason: ReasonInactive, Err: err}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &AuthError{Reason: ReasonInvalidCredentials, Err: err}
	}
	return &AuthError{Reason: ReasonBackend, Err: err}
}
