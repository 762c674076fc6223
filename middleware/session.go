package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/campusiq-portal/internal/auth"
	"go.uber.org/zap"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// SessionMiddleware attaches the browser's session to every request
type SessionMiddleware struct {
	manager *auth.Manager
	cookie  CookieConfig
	logger  *zap.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware
func NewSessionMiddleware(manager *auth.Manager, cookie CookieConfig, logger *zap.Logger) *SessionMiddleware {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = manager.TTL()
	}
	return &SessionMiddleware{
		manager: manager,
		cookie:  cookie,
		logger:  logger,
	}
}

// Cookie returns the session cookie settings
func (m *SessionMiddleware) Cookie() CookieConfig {
	return m.cookie
}

// Attach resolves the session from the session cookie, falling back to an
// Authorization bearer token. A request with neither gets a fresh session
// and a cookie naming it. Identity resolution is started but not awaited.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		var session *auth.Session
		if id := m.sessionID(r); id != "" {
			session = m.manager.Resume(id)
		} else if token := extractBearerToken(r); token != "" {
			session = m.manager.FromBearer(token)
			m.logger.Debug("bearer session",
				zap.String("request_id", requestID))
		} else {
			session = m.manager.Create()
			SetSessionCookie(w, m.cookie, session.ID(), m.cookie.MaxAge)
			m.logger.Debug("session created",
				zap.String("request_id", requestID),
				zap.String("session_id", session.ID()))
		}

		if session.CurrentState().Resolving {
			go func() {
				_, _ = session.Initialize(context.WithoutCancel(ctx))
			}()
		}

		next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
	})
}

// sessionID returns the session named by the request cookie. Values the
// gateway could not have issued are ignored so they never register a session.
func (m *SessionMiddleware) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookie.Name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		m.logger.Debug("ignoring malformed session cookie",
			zap.String("request_id", GetRequestIDFromContext(r.Context())))
		return ""
	}
	return cookie.Value
}

// SetSessionCookie names sessionID in the browser for maxAge
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the browser
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
