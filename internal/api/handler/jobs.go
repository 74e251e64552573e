package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/internal/service"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// JobService defines the job operations the handlers depend on.
type JobService interface {
	CreateJob(ctx context.Context, actor models.Actor, in service.JobInput) (*models.Job, error)
	TransitionJob(ctx context.Context, jobID uuid.UUID, actor models.Actor, target models.JobStatus, note string) (*models.Job, error)
	GetJob(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, actor models.Actor, filter store.JobFilter) (*service.JobList, error)
}

type createJobRequest struct {
	Title           string `json:"title"            validate:"required,max=200"`
	Description     string `json:"description"      validate:"required,max=20000"`
	Location        string `json:"location"         validate:"max=200"`
	MaxApplications *int   `json:"max_applications" validate:"omitempty,min=1"`
}

type jobTransitionRequest struct {
	Status string `json:"status" validate:"required,job_status"`
	Note   string `json:"note"   validate:"max=2000"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		var req createJobRequest
		if !decodeBody(w, r, &req) {
			return
		}

		job, err := svc.CreateJob(r.Context(), actor, service.JobInput{
			Title:           req.Title,
			Description:     req.Description,
			Location:        req.Location,
			MaxApplications: req.MaxApplications,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		companyID, ok := queryID(w, r, "company_id")
		if !ok {
			return
		}
		filter := store.JobFilter{CompanyID: companyID}
		if s := r.URL.Query().Get("status"); s != "" {
			status, valid := lifecycle.ParseJobStatus(s)
			if !valid {
				badRequest(w, "status is not a known job status", nil)
				return
			}
			filter.Status = status
		}
		filter.Page, filter.Limit = pagination(r)

		list, err := svc.ListJobs(r.Context(), actor, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Page(w, list.Items, list.Page, list.Limit, list.Total)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.GetJob(r.Context(), actor, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewTransitionJobHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/transitions.
func NewTransitionJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}
		var req jobTransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		job, err := svc.TransitionJob(r.Context(), jobID, actor, models.JobStatus(req.Status), req.Note)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}
