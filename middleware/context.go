package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// SessionKey is the context key for the browser's session
	SessionKey contextKey = "session"

	// PrincipalKey is the context key for the principal admitted by the route guard
	PrincipalKey contextKey = "principal"
)

// RequestIDHeader carries the request ID in and out of the gateway
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or assigns a fresh one
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetSessionFromContext retrieves the session from context
func GetSessionFromContext(ctx context.Context) *auth.Session {
	if val := ctx.Value(SessionKey); val != nil {
		if session, ok := val.(*auth.Session); ok {
			return session
		}
	}
	return nil
}

// WithSession adds a session to the context
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetPrincipalFromContext retrieves the admitted principal from context
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if principal, ok := val.(*models.Principal); ok {
			return principal
		}
	}
	return nil
}

// WithPrincipal adds the admitted principal to the context
func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
