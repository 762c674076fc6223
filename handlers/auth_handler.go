package handlers

import (
	"net/http"
	"time"

	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/middleware"
	"github.com/upb/campusiq-portal/models"
	"github.com/upb/campusiq-portal/utils"
	"go.uber.org/zap"
)

// SessionResponse describes the caller's session
type SessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Principal     *models.Principal `json:"principal,omitempty"`
	Home          string            `json:"home"`
}

// SessionHandler handles login, logout and session introspection
type SessionHandler struct {
	manager *auth.Manager
	cookie  middleware.CookieConfig
	table   *routing.Table
	now     func() time.Time
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(manager *auth.Manager, cookie middleware.CookieConfig, table *routing.Table, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		cookie:  cookie,
		table:   table,
		now:     time.Now,
		logger:  logger,
	}
}

// HandleLogin handles POST /api/session/login
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	session := middleware.GetSessionFromContext(ctx)
	if session == nil {
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	var cred auth.LoginCredential
	if err := utils.DecodeJSONBody(r, &cred); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	principal, err := session.Login(ctx, cred)
	if err != nil {
		h.logger.Info("login failed",
			zap.String("request_id", requestID),
			zap.String("reason", string(auth.ReasonOf(err))),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	rotated, err := h.manager.Rotate(ctx, session)
	if err != nil {
		h.logger.Warn("session rotation failed, keeping session id",
			zap.String("request_id", requestID),
			zap.Error(err))
	} else {
		session = rotated
		middleware.SetSessionCookie(w, h.cookie, session.ID(), h.cookieLifetime(principal.Credential))
	}

	_ = utils.WriteOK(w, h.describe(session.CurrentState()))
}

// HandleLogout handles POST /api/session/logout
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := middleware.GetSessionFromContext(ctx)
	if session == nil {
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if err := session.Logout(ctx); err != nil {
		h.logger.Error("failed to forget credential on logout",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("session_id", session.ID()),
			zap.Error(err))
	}
	h.manager.Remove(session.ID())
	middleware.ClearSessionCookie(w, h.cookie)

	utils.WriteNoContent(w)
}

// HandleSession handles GET /api/session. It waits for identity
// resolution like a page navigation does.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := middleware.GetSessionFromContext(ctx)
	if session == nil {
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	state, err := session.Await(ctx)
	if err != nil {
		utils.WritePending(w, 1)
		return
	}
	_ = utils.WriteOK(w, h.describe(state))
}

// describe builds the session view; the home of an anonymous caller is the login path
func (h *SessionHandler) describe(state models.AuthState) SessionResponse {
	resp := SessionResponse{Home: h.table.LoginPath}
	if state.Principal == nil {
		return resp
	}

	resp.Authenticated = true
	resp.Principal = state.Principal
	if home, ok := h.table.Homes.Home(state.Principal.Role); ok {
		resp.Home = home
	} else {
		h.logger.Error("route configuration error, falling back to login",
			zap.Error(&routing.RouteConfigurationError{Role: state.Principal.Role, Reason: "no home path configured"}))
	}
	return resp
}

// cookieLifetime is the session TTL, shortened to the credential's expiry
func (h *SessionHandler) cookieLifetime(credential string) time.Duration {
	lifetime := h.cookie.MaxAge
	if lifetime <= 0 {
		lifetime = h.manager.TTL()
	}
	if exp, ok := auth.ExpiresAt(credential); ok {
		if remaining := exp.Sub(h.now()); remaining > 0 && remaining < lifetime {
			lifetime = remaining
		}
	}
	return lifetime
}
