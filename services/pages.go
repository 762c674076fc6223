package services

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/upb/campusiq-portal/internal/apiclient"
	"github.com/upb/campusiq-portal/internal/observability"
	"github.com/upb/campusiq-portal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CampusIQ API endpoints read by the portal pages
const (
	EndpointStudentDashboard   = "/api/students/me/dashboard"
	EndpointStudentAttendance  = "/api/students/me/attendance"
	EndpointStudentPredictions = "/api/students/me/predictions"
	EndpointFacultyCourses     = "/api/faculty/me/courses"
	EndpointAdminDashboard     = "/api/admin/dashboard"
	EndpointNotificationCount  = "/api/notifications/count"
)

// Course composite sub-resources
const (
	CourseKey            = "course"
	CourseStudentsKey    = "students"
	CoursePredictionsKey = "predictions"
)

// PageView is the JSON view model of one portal page.
// Missing lists the sub-resources the API omitted, which is not the same as
// a section that is present but empty.
type PageView struct {
	Page      string                     `json:"page"`
	Principal *models.Principal          `json:"principal"`
	Sections  map[string]json.RawMessage `json:"sections"`
	Missing   []string                   `json:"missing,omitempty"`
}

type section struct {
	key      string
	endpoint string
}

// PageService assembles page view models from the CampusIQ API
type PageService struct {
	client *apiclient.Client
	logger *zap.Logger
}

// NewPageService creates a new PageService
func NewPageService(client *apiclient.Client, logger *zap.Logger) *PageService {
	return &PageService{
		client: client,
		logger: logger,
	}
}

// StudentDashboard joins the student's dashboard, attendance and predictions.
// Any failing call fails the page.
func (s *PageService) StudentDashboard(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*PageView, error) {
	return s.fanOut(ctx, tokens, "student_dashboard", principal,
		section{"dashboard", EndpointStudentDashboard},
		section{"attendance", EndpointStudentAttendance},
		section{"predictions", EndpointStudentPredictions},
	)
}

// FacultyDashboard lists the faculty member's courses
func (s *PageService) FacultyDashboard(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*PageView, error) {
	return s.fanOut(ctx, tokens, "faculty_dashboard", principal,
		section{"courses", EndpointFacultyCourses},
	)
}

// AdminDashboard returns the institution overview
func (s *PageService) AdminDashboard(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*PageView, error) {
	return s.fanOut(ctx, tokens, "admin_dashboard", principal,
		section{"dashboard", EndpointAdminDashboard},
	)
}

// Notifications returns the unread notification count
func (s *PageService) Notifications(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal) (*PageView, error) {
	return s.fanOut(ctx, tokens, "notifications", principal,
		section{"count", EndpointNotificationCount},
	)
}

// FacultyCourse fetches a course with its students and predictions in one
// composite request
func (s *PageService) FacultyCourse(ctx context.Context, tokens oauth2.TokenSource, principal *models.Principal, courseID int) (view *PageView, err error) {
	ctx, span := observability.StartPageSpan(ctx, "faculty_course", roleOf(principal))
	defer func() { observability.EndSpan(span, err) }()

	adapter := apiclient.NewCompositeAdapter(s.client.WithTokenSource(tokens))

	payload, err := adapter.FetchComposite(ctx, "courses", strconv.Itoa(courseID),
		CourseKey, CourseStudentsKey, CoursePredictionsKey)
	if err != nil {
		translated := Translate(err)
		if IsInternalError(translated) {
			return nil, WrapExternal("invalid composite payload", err)
		}
		return nil, translated
	}

	view = &PageView{
		Page:      "faculty_course",
		Principal: principal,
		Sections:  make(map[string]json.RawMessage),
	}
	for _, key := range payload.Keys() {
		part := payload.Get(key)
		if !part.Present {
			view.Missing = append(view.Missing, key)
			continue
		}
		view.Sections[key] = part.Raw
	}

	if len(view.Missing) > 0 {
		s.logger.Debug("composite payload omitted sub-resources",
			zap.Int("course_id", courseID),
			zap.Strings("missing", view.Missing))
	}
	return view, nil
}

func (s *PageService) fanOut(ctx context.Context, tokens oauth2.TokenSource, page string, principal *models.Principal, sections ...section) (view *PageView, err error) {
	ctx, span := observability.StartPageSpan(ctx, page, roleOf(principal))
	defer func() { observability.EndSpan(span, err) }()

	client := s.client.WithTokenSource(tokens)

	calls := make([]apiclient.Call, len(sections))
	for i, sec := range sections {
		calls[i] = client.Get(sec.endpoint)
	}

	responses, err := apiclient.FetchAll(ctx, calls...)
	if err != nil {
		return nil, Translate(err)
	}

	view = &PageView{
		Page:      page,
		Principal: principal,
		Sections:  make(map[string]json.RawMessage, len(sections)),
	}
	for i, sec := range sections {
		body := responses[i].Body
		if !json.Valid(body) {
			return nil, WrapExternal("invalid response from "+sec.endpoint, nil)
		}
		view.Sections[sec.key] = json.RawMessage(body)
	}
	return view, nil
}

func roleOf(principal *models.Principal) string {
	if principal == nil {
		return ""
	}
	return string(principal.Role)
}
