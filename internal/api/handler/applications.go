package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/internal/service"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// ApplicationService defines the application operations the handlers depend on.
type ApplicationService interface {
	Submit(ctx context.Context, jobID, applicantID uuid.UUID, payload models.ApplicationPayload) (*models.Application, error)
	Transition(ctx context.Context, applicationID uuid.UUID, actor models.Actor, target models.ApplicationStatus, notes string) (*models.Application, error)
	GetApplication(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, actor models.Actor, filter store.ApplicationFilter) (*service.ApplicationList, error)
	ExpireStale(ctx context.Context, window time.Duration) (service.ExpireResult, error)
}

type submitRequest struct {
	CoverLetter     string  `json:"cover_letter"     validate:"required,max=10000"`
	ResumeURL       string  `json:"resume_url"       validate:"omitempty,url,max=2048"`
	ExpectedSalary  *int    `json:"expected_salary"  validate:"omitempty,min=0"`
	Availability    *string `json:"availability"     validate:"omitempty,max=200"`
	YearsExperience *int    `json:"years_experience" validate:"omitempty,min=0,max=80"`
}

type applicationTransitionRequest struct {
	Status string `json:"status" validate:"required,application_status"`
	Notes  string `json:"notes"  validate:"max=2000"`
}

// NewSubmitHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/applications. The caller is the applicant.
func NewSubmitHandler(svc ApplicationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}
		var req submitRequest
		if !decodeBody(w, r, &req) {
			return
		}

		app, err := svc.Submit(r.Context(), jobID, actor.ID, models.ApplicationPayload{
			CoverLetter:     req.CoverLetter,
			ResumeURL:       req.ResumeURL,
			ExpectedSalary:  req.ExpectedSalary,
			Availability:    req.Availability,
			YearsExperience: req.YearsExperience,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, app)
	}
}

// NewListJobApplicationsHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/applications.
func NewListJobApplicationsHandler(svc ApplicationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}
		listApplications(w, r, svc, store.ApplicationFilter{JobID: jobID})
	}
}

// NewListApplicationsHandler returns an http.HandlerFunc for
// GET /api/v1/applications. Ambassadors get their own; admins may filter by
// job_id or applicant_id.
func NewListApplicationsHandler(svc ApplicationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := queryID(w, r, "job_id")
		if !ok {
			return
		}
		applicantID, ok := queryID(w, r, "applicant_id")
		if !ok {
			return
		}
		listApplications(w, r, svc, store.ApplicationFilter{JobID: jobID, ApplicantID: applicantID})
	}
}

func listApplications(w http.ResponseWriter, r *http.Request, svc ApplicationService, filter store.ApplicationFilter) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, valid := lifecycle.ParseApplicationStatus(s)
		if !valid {
			badRequest(w, "status is not a known application status", nil)
			return
		}
		filter.Status = status
	}
	filter.Page, filter.Limit = pagination(r)

	list, err := svc.ListApplications(r.Context(), actor, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Page(w, list.Items, list.Page, list.Limit, list.Total)
}

// NewGetApplicationHandler returns an http.HandlerFunc for
// GET /api/v1/applications/{applicationID}.
func NewGetApplicationHandler(svc ApplicationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "applicationID")
		if !ok {
			return
		}

		app, err := svc.GetApplication(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, app)
	}
}

// NewTransitionApplicationHandler returns an http.HandlerFunc for
// POST /api/v1/applications/{applicationID}/transitions.
func NewTransitionApplicationHandler(svc ApplicationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "applicationID")
		if !ok {
			return
		}
		var req applicationTransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		app, err := svc.Transition(r.Context(), id, actor, models.ApplicationStatus(req.Status), req.Notes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, app)
	}
}

// NewExpireStaleHandler returns an http.HandlerFunc for
// POST /api/v1/admin/expire. The window is fixed by configuration.
func NewExpireStaleHandler(svc ApplicationService, window time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ExpireStale(r.Context(), window)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, result)
	}
}
