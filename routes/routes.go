package routes

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/campusiq-portal/app"
	"github.com/upb/campusiq-portal/handlers"
	"github.com/upb/campusiq-portal/middleware"
	"github.com/upb/campusiq-portal/utils"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	table := deps.Routes

	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.WriteTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(sessionStoreDB(deps), deps.Logger)
	if deps.Redis != nil {
		health.WithRedis(deps.Redis)
	}
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	sessions := handlers.NewSessionHandler(deps.Sessions, deps.SessionMiddleware.Cookie(), table, deps.Logger)
	pages := handlers.NewPageHandler(deps.Pages, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionMiddleware.Attach)

		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", sessions.HandleSession)
			r.Post("/login", sessions.HandleLogin)
			r.Post("/logout", sessions.HandleLogout)
		})

		r.Get(table.LoginPath, loginPage)
		r.With(deps.RouteGuard.Home).Get(table.RootPath, homePage)

		pageHandlers := map[string]http.HandlerFunc{
			"/student/dashboard":    pages.HandleStudentDashboard,
			"/faculty/dashboard":    pages.HandleFacultyDashboard,
			"/faculty/courses/{id}": pages.HandleFacultyCourse,
			"/admin/dashboard":      pages.HandleAdminDashboard,
			"/notifications":        pages.HandleNotifications,
		}
		for _, rule := range table.Rules {
			handler, ok := pageHandlers[rule.Path]
			if !ok {
				deps.Logger.Warn("route table names a page the gateway does not render",
					zap.String("path", rule.Path))
				continue
			}
			r.With(deps.RouteGuard.Protect(rule)).Get(rule.Path, handler)
		}
	})

	// Unknown API endpoints answer 404; unknown pages go to the root path,
	// which sends each principal home
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			_ = utils.WriteNotFound(w, "endpoint not found")
			return
		}
		deps.RouteGuard.NotFound(w, r)
	})

	return r
}

// loginPage is the public landing of anonymous browsers
func loginPage(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{"page": "login"})
}

// homePage renders the root path for a principal whose home it is
func homePage(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]any{
		"page":      "home",
		"principal": middleware.GetPrincipalFromContext(r.Context()),
	})
}

// sessionStoreDB is the database behind readiness checks; nil with the in-memory store
func sessionStoreDB(deps *app.Dependencies) *sql.DB {
	if deps.DB == nil {
		return nil
	}
	return deps.DB.DB
}
