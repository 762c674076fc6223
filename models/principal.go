package models

import (
	"fmt"
	"strings"
)

// Role represents the role of a principal within the campus
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// AllRoles returns every role variant in declaration order
func AllRoles() []Role {
	return []Role{RoleStudent, RoleFaculty, RoleAdmin}
}

// ParseRole converts a raw string into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsValid returns true if the role is one of the known variants
func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Principal represents an authenticated actor. It is never modified after
// issue; a new login produces a new Principal.
type Principal struct {
	ID         int    `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       Role   `json:"role"`
	Credential string `json:"-"` // bearer token issued by the API
}

// NewPrincipal creates a new Principal instance
func NewPrincipal(id int, email, fullName string, role Role, credential string) *Principal {
	return &Principal{
		ID:         id,
		Email:      email,
		FullName:   fullName,
		Role:       role,
		Credential: credential,
	}
}

// IsAdmin returns true if the principal has admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AuthState is a snapshot of a session's identity. Sessions replace the
// whole value on every transition.
type AuthState struct {
	Principal *Principal `json:"principal,omitempty"`
	Resolving bool       `json:"resolving"`
}

// ResolvingState is the state every session context starts in
func ResolvingState() AuthState {
	return AuthState{Resolving: true}
}

// SettledState returns a resolved state; a nil principal means anonymous
func SettledState(p *Principal) AuthState {
	return AuthState{Principal: p}
}

// Authenticated returns true once resolution has finished with a principal
func (s AuthState) Authenticated() bool {
	return !s.Resolving && s.Principal != nil
}
