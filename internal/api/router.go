package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/jobmarket/internal/api/middleware"
	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateJob     http.HandlerFunc
	ListJobs      http.HandlerFunc
	GetJob        http.HandlerFunc
	TransitionJob http.HandlerFunc

	SubmitApplication     http.HandlerFunc
	ListJobApplications   http.HandlerFunc
	ListApplications      http.HandlerFunc
	GetApplication        http.HandlerFunc
	TransitionApplication http.HandlerFunc

	ExpireStale http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Post("/api/v1/jobs/{jobID}/transitions", orNotImplemented(deps.TransitionJob))
		r.Get("/api/v1/jobs/{jobID}/applications", orNotImplemented(deps.ListJobApplications))

		r.Get("/api/v1/applications", orNotImplemented(deps.ListApplications))
		r.Get("/api/v1/applications/{applicationID}", orNotImplemented(deps.GetApplication))
		r.Post("/api/v1/applications/{applicationID}/transitions", orNotImplemented(deps.TransitionApplication))

		r.With(deps.Auth.RequireRole(models.RoleCompany)).
			Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
		r.With(deps.Auth.RequireRole(models.RoleAmbassador)).
			Post("/api/v1/jobs/{jobID}/applications", orNotImplemented(deps.SubmitApplication))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireRole(models.RoleAdmin))

			r.Post("/api/v1/admin/expire", orNotImplemented(deps.ExpireStale))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
