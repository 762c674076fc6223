package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/campusiq-portal/middleware"
	"github.com/upb/campusiq-portal/models"
	"github.com/upb/campusiq-portal/services"
	"github.com/upb/campusiq-portal/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// PageHandler renders portal pages as JSON view models.
// Every route it serves sits behind middleware.RouteGuard.
type PageHandler struct {
	pages  *services.PageService
	logger *zap.Logger
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(pages *services.PageService, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		pages:  pages,
		logger: logger,
	}
}

type pageFunc func(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*services.PageView, error)

// HandleStudentDashboard handles GET /student/dashboard
func (h *PageHandler) HandleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.pages.StudentDashboard)
}

// HandleFacultyDashboard handles GET /faculty/dashboard
func (h *PageHandler) HandleFacultyDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.pages.FacultyDashboard)
}

// HandleAdminDashboard handles GET /admin/dashboard
func (h *PageHandler) HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.pages.AdminDashboard)
}

// HandleNotifications handles GET /notifications
func (h *PageHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.pages.Notifications)
}

// HandleFacultyCourse handles GET /faculty/courses/{id}
func (h *PageHandler) HandleFacultyCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := utils.ParseResourceID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	h.render(w, r, func(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*services.PageView, error) {
		return h.pages.FacultyCourse(ctx, tokens, principal, courseID)
	})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, page pageFunc) {
	ctx := r.Context()

	session := middleware.GetSessionFromContext(ctx)
	principal := middleware.GetPrincipalFromContext(ctx)
	if session == nil || principal == nil {
		h.logger.Error("page served without an admitted principal",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("path", r.URL.Path))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	view, err := page(ctx, session, principal)
	if err != nil {
		HandleServiceError(w, err, h.logger.With(
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("path", r.URL.Path)))
		return
	}

	if err := utils.WriteOK(w, view); err != nil {
		h.logger.Error("failed to write page", zap.Error(err))
	}
}
