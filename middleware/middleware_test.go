package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/internal/guard"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/models"
	"go.uber.org/zap"
)

const testCookie = "campusiq_session"

const (
	sessID  = "6b7a1c2e-3f4d-4e5a-9b8c-0d1e2f3a4b5c"
	anonID  = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
	slowID  = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	knownID = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
)

// MockIdentityProvider is a mock implementation of auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, cred auth.LoginCredential) (string, error) {
	args := m.Called(ctx, cred)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

type stack struct {
	identity *MockIdentityProvider
	store    *auth.MemoryStore
	manager  *auth.Manager
	sessions *SessionMiddleware
	guard    *RouteGuard
	table    *routing.Table
}

func newStack(t *testing.T) *stack {
	t.Helper()
	table, err := routing.Default()
	require.NoError(t, err)

	identity := new(MockIdentityProvider)
	store := auth.NewMemoryStore()
	manager := auth.NewManager(identity, store, time.Hour, zap.NewNop())

	return &stack{
		identity: identity,
		store:    store,
		manager:  manager,
		sessions: NewSessionMiddleware(manager, CookieConfig{Name: testCookie}, zap.NewNop()),
		guard:    NewRouteGuard(guard.New(table, nil, zap.NewNop()), zap.NewNop()),
		table:    table,
	}
}

// signIn stores a credential under sessionID and resolves it to p
func (s *stack) signIn(t *testing.T, sessionID string, p *models.Principal) {
	t.Helper()
	require.NoError(t, s.store.Save(context.Background(), sessionID, p.Credential))
	s.identity.On("Resolve", mock.Anything, p.Credential).Return(p, nil)
}

func (s *stack) protect(path string, next http.Handler) http.Handler {
	rule, ok := s.table.Lookup(path)
	if !ok {
		panic("no rule for " + path)
	}
	return s.sessions.Attach(s.guard.Protect(rule)(next))
}

func withCookie(req *http.Request, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: testCookie, Value: sessionID})
	return req
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	t.Run("assigns a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("reuses the caller's request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "req-42", seen)
	})
}

func TestAttach(t *testing.T) {
	t.Run("new browser gets a session cookie", func(t *testing.T) {
		s := newStack(t)

		var session *auth.Session
		handler := s.sessions.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session = GetSessionFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotNil(t, session)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, testCookie, cookies[0].Name)
		assert.Equal(t, session.ID(), cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, int(time.Hour.Seconds()), cookies[0].MaxAge)
		assert.Equal(t, 1, s.manager.Len())
	})

	t.Run("cookie resumes the same session", func(t *testing.T) {
		s := newStack(t)
		existing := s.manager.Resume(knownID)

		var session *auth.Session
		handler := s.sessions.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session = GetSessionFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), knownID))

		assert.Same(t, existing, session)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("malformed cookie is replaced by a fresh session", func(t *testing.T) {
		s := newStack(t)

		var session *auth.Session
		handler := s.sessions.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session = GetSessionFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "forged-value"))

		require.NotNil(t, session)
		assert.NotEqual(t, "forged-value", session.ID())
		_, registered := s.manager.Get("forged-value")
		assert.False(t, registered)
		assert.Equal(t, 1, s.manager.Len())

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.ID(), cookies[0].Value)
	})

	t.Run("bearer token resolves without a cookie", func(t *testing.T) {
		s := newStack(t)
		p := models.NewPrincipal(5, "f@campus.edu", "Fac Ulty", models.RoleFaculty, "api-token")
		s.identity.On("Resolve", mock.Anything, "api-token").Return(p, nil).Once()

		var state models.AuthState
		handler := s.sessions.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			state, err = GetSessionFromContext(r.Context()).Await(r.Context())
			require.NoError(t, err)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Authorization", "Bearer api-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, p, state.Principal)
		assert.Empty(t, w.Result().Cookies())
		assert.Equal(t, 0, s.manager.Len())
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(req))
		})
	}
}

func TestRouteGuard_Protect(t *testing.T) {
	student := models.NewPrincipal(1, "s@campus.edu", "Stu Dent", models.RoleStudent, "student-token")

	t.Run("anonymous is sent to login", func(t *testing.T) {
		s := newStack(t)

		w := httptest.NewRecorder()
		req := withCookie(httptest.NewRequest(http.MethodGet, "/student/dashboard", nil), anonID)
		s.protect("/student/dashboard", okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("allowed role renders with the principal", func(t *testing.T) {
		s := newStack(t)
		s.signIn(t, sessID, student)

		var admitted *models.Principal
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admitted = GetPrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := withCookie(httptest.NewRequest(http.MethodGet, "/student/dashboard", nil), sessID)
		s.protect("/student/dashboard", next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, student, admitted)
	})

	t.Run("other role is sent home", func(t *testing.T) {
		s := newStack(t)
		s.signIn(t, sessID, student)

		w := httptest.NewRecorder()
		req := withCookie(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), sessID)
		s.protect("/admin/dashboard", okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/student/dashboard", w.Header().Get("Location"))
	})

	t.Run("unrestricted route admits any principal", func(t *testing.T) {
		s := newStack(t)
		s.signIn(t, sessID, student)

		w := httptest.NewRecorder()
		req := withCookie(httptest.NewRequest(http.MethodGet, "/notifications", nil), sessID)
		s.protect("/notifications", okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("navigation abandoned while resolving gets a placeholder", func(t *testing.T) {
		s := newStack(t)
		release := make(chan struct{})
		defer close(release)

		require.NoError(t, s.store.Save(context.Background(), slowID, "slow-token"))
		s.identity.On("Resolve", mock.Anything, "slow-token").
			Run(func(mock.Arguments) { <-release }).
			Return(student, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := withCookie(httptest.NewRequest(http.MethodGet, "/student/dashboard", nil), slowID).WithContext(ctx)

		w := httptest.NewRecorder()
		s.protect("/student/dashboard", okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("missing session is an internal error", func(t *testing.T) {
		s := newStack(t)
		rule, _ := s.table.Lookup("/notifications")

		w := httptest.NewRecorder()
		s.guard.Protect(rule)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRouteGuard_Home(t *testing.T) {
	tests := []struct {
		name      string
		principal *models.Principal
		want      string
	}{
		{"anonymous", nil, "/login"},
		{"student", models.NewPrincipal(1, "s@campus.edu", "S", models.RoleStudent, "t1"), "/student/dashboard"},
		{"faculty", models.NewPrincipal(2, "f@campus.edu", "F", models.RoleFaculty, "t2"), "/faculty/dashboard"},
		{"admin", models.NewPrincipal(3, "a@campus.edu", "A", models.RoleAdmin, "t3"), "/admin/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t)
			if tt.principal != nil {
				s.signIn(t, sessID, tt.principal)
			}

			w := httptest.NewRecorder()
			req := withCookie(httptest.NewRequest(http.MethodGet, "/", nil), sessID)
			s.sessions.Attach(s.guard.Home(okHandler)).ServeHTTP(w, req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Location"))
		})
	}
}

func TestRouteGuard_NotFound(t *testing.T) {
	s := newStack(t)

	w := httptest.NewRecorder()
	s.guard.NotFound(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}
