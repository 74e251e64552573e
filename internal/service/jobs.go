package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/internal/cache"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// JobService owns job posting and moderation. It never writes application_count.
type JobService struct {
	store store.Store
	memo  *cache.Memo
	opts  options
}

func NewJobService(s store.Store, memo *cache.Memo, opts ...Option) *JobService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &JobService{store: s, memo: memo, opts: o}
}

// JobInput is the company-supplied part of a new job.
type JobInput struct {
	Title           string
	Description     string
	Location        string
	MaxApplications *int
}

// JobList is one page of jobs.
type JobList struct {
	Items []*models.Job `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// CreateJob creates a draft job owned by the calling company.
func (s *JobService) CreateJob(ctx context.Context, actor models.Actor, in JobInput) (*models.Job, error) {
	if actor.Role != models.RoleCompany {
		return nil, apperr.Forbidden("only companies may post jobs")
	}

	now := s.opts.now()
	job := &models.Job{
		ID:              uuid.New(),
		CompanyID:       actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		Status:          models.JobStatusDraft,
		MaxApplications: in.MaxApplications,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fromStore(err, "company")
	}

	s.opts.logger.InfoContext(ctx, "job created", "job_id", job.ID, "actor_id", actor.ID)
	runSideEffects(ctx, s.opts.logger, s.memo, nil, sideEffects{deps: cache.JobDependents(job.ID)})
	return job, nil
}

// TransitionJob moves a job along its moderation and publication graph.
func (s *JobService) TransitionJob(ctx context.Context, jobID uuid.UUID, actor models.Actor, target models.JobStatus, note string) (*models.Job, error) {
	var opts []store.JobUpdateOption
	if note != "" {
		opts = append(opts, store.WithModerationNote(note))
	}

	for attempt := 1; ; attempt++ {
		job, err := s.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, fromStore(err, "job")
		}
		if err := lifecycle.CheckJob(job.Status, target, actor, job.CompanyID); err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateJobStatus(ctx, jobID, job.Status, target, opts...)
		if err == nil {
			s.opts.logger.InfoContext(ctx, "job transitioned",
				"job_id", jobID, "actor_id", actor.ID, "from", job.Status, "to", target)
			runSideEffects(ctx, s.opts.logger, s.memo, nil, sideEffects{deps: cache.JobDependents(jobID)})
			return updated, nil
		}
		if !errors.Is(err, store.ErrStatusConflict) {
			return nil, fromStore(err, "job")
		}
		if attempt >= maxTransitionAttempts {
			return nil, apperr.Conflict("job changed concurrently, try again")
		}
	}
}

// GetJob returns a job. Jobs that are not live are visible only to their
// owner and admins.
func (s *JobService) GetJob(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Job, error) {
	job, err := cache.GetOrLoad(ctx, s.memo, cache.JobKey(id), nil,
		func(ctx context.Context) (*models.Job, error) {
			return s.store.GetJob(ctx, id)
		})
	if err != nil {
		return nil, fromStore(err, "job")
	}
	if !canSeeJob(actor, job) {
		return nil, apperr.NotFound("job not found")
	}
	return job, nil
}

// ListJobs lists jobs. Outside their own postings, non-admins only see active
// jobs.
func (s *JobService) ListJobs(ctx context.Context, actor models.Actor, filter store.JobFilter) (*JobList, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCompany:
		if filter.CompanyID != actor.ID {
			filter.Status = models.JobStatusActive
		}
	default:
		filter.Status = models.JobStatusActive
	}
	filter.Page, filter.Limit = store.NormalizePage(filter.Page, filter.Limit)

	list, err := cache.GetOrLoad(ctx, s.memo, cache.JobListKey(cache.QueryHash(filter)), []string{cache.JobsIndex},
		func(ctx context.Context) (*JobList, error) {
			items, total, err := s.store.ListJobs(ctx, filter)
			if err != nil {
				return nil, err
			}
			return &JobList{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
		})
	if err != nil {
		return nil, fromStore(err, "jobs")
	}
	return list, nil
}

func canSeeJob(actor models.Actor, job *models.Job) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystem:
		return true
	case models.RoleCompany:
		if actor.ID == job.CompanyID {
			return true
		}
	}
	switch job.Status {
	case models.JobStatusActive, models.JobStatusPaused, models.JobStatusClosed:
		return true
	}
	return false
}
