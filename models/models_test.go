package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Role tests
func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{"student", "student", RoleStudent, false},
		{"faculty", "faculty", RoleFaculty, false},
		{"admin", "admin", RoleAdmin, false},
		{"mixed case and padding", "  Faculty ", RoleFaculty, false},
		{"unknown", "dean", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_IsValid(t *testing.T) {
	for _, role := range AllRoles() {
		assert.True(t, role.IsValid(), string(role))
	}
	assert.False(t, Role("guest").IsValid())
}

// Principal tests
func TestNewPrincipal(t *testing.T) {
	p := NewPrincipal(7, "ada@campusiq.edu", "Ada", RoleAdmin, "token")

	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "ada@campusiq.edu", p.Email)
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, "token", p.Credential)
	assert.True(t, p.IsAdmin())
}

func TestPrincipal_JSONOmitsCredential(t *testing.T) {
	p := NewPrincipal(1, "s@campusiq.edu", "Sam", RoleStudent, "secret-token")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret-token")
	assert.JSONEq(t, `{"id":1,"email":"s@campusiq.edu","full_name":"Sam","role":"student"}`, string(data))
}

// AuthState tests
func TestAuthState(t *testing.T) {
	principal := NewPrincipal(1, "s@campusiq.edu", "Sam", RoleStudent, "token")

	tests := []struct {
		name          string
		state         AuthState
		authenticated bool
	}{
		{"resolving", ResolvingState(), false},
		{"anonymous", SettledState(nil), false},
		{"authenticated", SettledState(principal), true},
		{"resolving with stale principal", AuthState{Principal: principal, Resolving: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.authenticated, tt.state.Authenticated())
		})
	}
}

// SessionCredential tests
func TestNewSessionCredential(t *testing.T) {
	cred := NewSessionCredential("sess-1", "token")

	assert.Equal(t, "sess-1", cred.SessionID)
	assert.Equal(t, "token", cred.Token)
	assert.False(t, cred.CreatedAt.IsZero())
	assert.Equal(t, cred.CreatedAt, cred.UpdatedAt)
	assert.Equal(t, "session_credentials", cred.TableName())
}

func TestSessionCredential_JSONOmitsToken(t *testing.T) {
	data, err := json.Marshal(NewSessionCredential("sess-1", "secret-token"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
}
