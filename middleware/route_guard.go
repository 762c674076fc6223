package middleware

import (
	"net/http"

	"github.com/upb/campusiq-portal/internal/guard"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/models"
	"github.com/upb/campusiq-portal/utils"
	"go.uber.org/zap"
)

// pendingRetryAfter is the Retry-After hint, in seconds, for a navigation
// that ended before the session settled
const pendingRetryAfter = 1

// RouteGuard gates page navigations on the session's AuthState.
// It must run after SessionMiddleware.Attach.
type RouteGuard struct {
	guard  *guard.Guard
	logger *zap.Logger
}

// NewRouteGuard creates a new RouteGuard
func NewRouteGuard(g *guard.Guard, logger *zap.Logger) *RouteGuard {
	return &RouteGuard{
		guard:  g,
		logger: logger,
	}
}

// Protect admits requests that rule authorizes and redirects the rest
func (g *RouteGuard) Protect(rule routing.RouteRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ok := g.await(w, r)
			if !ok {
				return
			}
			g.apply(w, r, next, state, g.guard.Check(state, rule))
		})
	}
}

// Home sends the root path to the principal's landing page
func (g *RouteGuard) Home(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, ok := g.await(w, r)
		if !ok {
			return
		}
		g.apply(w, r, next, state, g.guard.CheckHome(state, r.URL.Path))
	})
}

// NotFound sends unknown paths to the root path
func (g *RouteGuard) NotFound(w http.ResponseWriter, r *http.Request) {
	redirect(w, g.guard.Table().RootPath)
}

// await waits for the session to settle. When the request ends first it
// writes the pending placeholder and returns false.
func (g *RouteGuard) await(w http.ResponseWriter, r *http.Request) (models.AuthState, bool) {
	ctx := r.Context()

	session := GetSessionFromContext(ctx)
	if session == nil {
		g.logger.Error("route guard without session",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("path", r.URL.Path))
		_ = utils.WriteInternalServerError(w, "")
		return models.AuthState{}, false
	}

	state, err := session.Await(ctx)
	if err != nil {
		g.logger.Debug("navigation ended while session was resolving",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.WritePending(w, pendingRetryAfter)
		return state, false
	}
	return state, true
}

func (g *RouteGuard) apply(w http.ResponseWriter, r *http.Request, next http.Handler, state models.AuthState, d guard.Decision) {
	switch {
	case d.Outcome == guard.OutcomeLoading:
		utils.WritePending(w, pendingRetryAfter)
	case d.Redirects():
		redirect(w, d.RedirectTo)
	default:
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), state.Principal)))
	}
}

// redirect answers 302 with no body
func redirect(w http.ResponseWriter, target string) {
	w.Header().Set("Location", target)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
}
