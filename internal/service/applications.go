package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/internal/cache"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/internal/notify"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// DefaultExpiryWindow is how long an application may sit in pending.
const DefaultExpiryWindow = 30 * 24 * time.Hour

// ExpiredNote is recorded on applications rejected by the expiry sweep.
const ExpiredNote = "auto-expired"

// maxTransitionAttempts bounds retries when a transition loses a race to a
// writer that moved the application along a still-compatible path.
const maxTransitionAttempts = 3

// ApplicationService creates applications and moves them through their lifecycle.
type ApplicationService struct {
	store    store.Store
	memo     *cache.Memo
	notifier notify.Dispatcher
	opts     options
}

func NewApplicationService(s store.Store, memo *cache.Memo, n notify.Dispatcher, opts ...Option) *ApplicationService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ApplicationService{store: s, memo: memo, notifier: n, opts: o}
}

// ApplicationList is one page of applications.
type ApplicationList struct {
	Items []*models.Application `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ExpireResult summarizes one ExpireStale run. Skipped counts applications
// another writer moved out of pending after they were selected.
type ExpireResult struct {
	Selected int `json:"selected"`
	Expired  int `json:"expired"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Submit creates a pending application for applicantID on jobID and reserves a
// slot on the job. The application, its first history entry and the counter
// increment are committed together.
func (s *ApplicationService) Submit(ctx context.Context, jobID, applicantID uuid.UUID, payload models.ApplicationPayload) (*models.Application, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fromStore(err, "job")
	}
	applicant, err := s.store.GetUser(ctx, applicantID)
	if err != nil {
		return nil, fromStore(err, "applicant")
	}
	if applicant.Role != models.RoleAmbassador {
		return nil, apperr.Forbidden("only ambassadors may apply to jobs")
	}
	if !job.Status.AcceptsApplications() {
		return nil, apperr.Conflict("job is not accepting applications (status %s)", job.Status)
	}
	if !job.HasCapacity() {
		return nil, apperr.Conflict("job has reached its application limit")
	}

	owner := s.recipient(ctx, job.CompanyID)

	now := s.opts.now()
	app := &models.Application{
		ID:               uuid.New(),
		JobID:            jobID,
		ApplicantID:      applicantID,
		Status:           models.ApplicationPending,
		CoverLetter:      payload.CoverLetter,
		ResumeURL:        payload.ResumeURL,
		ExpectedSalary:   payload.ExpectedSalary,
		Availability:     payload.Availability,
		YearsExperience:  payload.YearsExperience,
		LastStatusUpdate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
		StatusHistory: []models.StatusChange{
			{Status: models.ApplicationPending, ActorID: applicantID, ChangedAt: now},
		},
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateKey):
			return nil, apperr.Conflict("applicant has already applied to this job")
		case errors.Is(err, store.ErrJobNotAccepting):
			return nil, apperr.Conflict("job is not accepting applications")
		case errors.Is(err, store.ErrCapacityExhausted):
			return nil, apperr.Conflict("job has reached its application limit")
		default:
			return nil, fromStore(err, "job or applicant")
		}
	}

	s.opts.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID, "job_id", jobID, "actor_id", applicantID)

	runSideEffects(ctx, s.opts.logger, s.memo, s.notifier, sideEffects{
		deps: cache.ApplicationDependents(app),
		sends: []func(context.Context) error{
			s.sender(notify.EventSubmitted, app, job, applicantID, applicant, ""),
			s.sender(notify.EventSubmitted, app, job, applicantID, owner, ""),
		},
	})
	return app, nil
}

// Transition moves an application to target on behalf of actor.
//
// Authorization is checked before the edge: an actor who may not drive target
// gets Forbidden even if the edge is also illegal. The write is a conditional
// update on the status the decision was based on; if another writer got there
// first the application is reloaded and the decision re-made, so of two
// concurrent withdrawals exactly one succeeds and the other sees an
// InvalidTransition.
func (s *ApplicationService) Transition(ctx context.Context, applicationID uuid.UUID, actor models.Actor, target models.ApplicationStatus, notes string) (*models.Application, error) {
	kind := notify.EventStatusChanged
	if actor.Role == models.RoleSystem && notes == ExpiredNote {
		kind = notify.EventExpired
	}
	return s.transition(ctx, applicationID, actor, target, notes, kind, "")
}

// transition implements Transition. A non-empty requireFrom restricts the move
// to applications currently in that status, across retries too.
func (s *ApplicationService) transition(ctx context.Context, applicationID uuid.UUID, actor models.Actor, target models.ApplicationStatus, notes string, kind notify.EventKind, requireFrom models.ApplicationStatus) (*models.Application, error) {
	if err := lifecycle.AuthorizeRole(actor.Role, target); err != nil {
		return nil, err
	}

	var (
		app      *models.Application
		job      *models.Job
		from     models.ApplicationStatus
		to       *models.User
		resolved bool
	)
	for attempt := 1; ; attempt++ {
		var err error
		app, err = s.store.GetApplication(ctx, applicationID)
		if err != nil {
			return nil, fromStore(err, "application")
		}
		if job == nil {
			job, err = s.store.GetJob(ctx, app.JobID)
			if err != nil {
				return nil, apperr.Internal(err, "load job for application")
			}
		}
		if err := lifecycle.AuthorizeParty(actor, app.ApplicantID, job.CompanyID, target); err != nil {
			return nil, err
		}
		if requireFrom != "" && app.Status != requireFrom {
			return nil, apperr.InvalidTransition("application is no longer %s", requireFrom)
		}
		if err := lifecycle.ValidateEdge(app.Status, target); err != nil {
			return nil, err
		}
		if !resolved {
			to, resolved = s.recipient(ctx, app.ApplicantID), true
		}

		from = app.Status
		change := models.StatusChange{Status: target, ActorID: actor.ID, Notes: notes, ChangedAt: s.opts.now()}
		err = s.store.TransitionApplication(ctx, applicationID, from, change)
		if err == nil {
			app.Status = target
			app.LastStatusUpdate = change.ChangedAt
			app.UpdatedAt = change.ChangedAt
			app.StatusHistory = append(app.StatusHistory, change)
			break
		}
		if !errors.Is(err, store.ErrStatusConflict) {
			return nil, fromStore(err, "application")
		}
		if attempt >= maxTransitionAttempts {
			return nil, apperr.Conflict("application changed concurrently, try again")
		}
		s.opts.logger.DebugContext(ctx, "transition lost race, re-evaluating",
			"application_id", applicationID, "from", from, "to", target)
	}

	s.opts.logger.InfoContext(ctx, "application transitioned",
		"application_id", app.ID, "job_id", app.JobID, "actor_id", actor.ID,
		"from", from, "to", target)

	runSideEffects(ctx, s.opts.logger, s.memo, s.notifier, sideEffects{
		deps: cache.ApplicationDependents(app),
		sends: []func(context.Context) error{
			s.sender(kind, app, job, actor.ID, to, notes),
		},
	})
	return app, nil
}

// ExpireStale rejects every pending application created more than window ago
// as the system actor. Per-item failures are logged and counted; the batch
// always runs to the end. Calling it again is harmless.
func (s *ApplicationService) ExpireStale(ctx context.Context, window time.Duration) (ExpireResult, error) {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	cutoff := s.opts.now().Add(-window)

	stale, err := s.store.ListStalePending(ctx, cutoff, s.opts.expiryBatchSize)
	if err != nil {
		return ExpireResult{}, apperr.Internal(err, "list stale applications")
	}

	res := ExpireResult{Selected: len(stale)}
	for _, app := range stale {
		if ctx.Err() != nil {
			res.Failed += res.Selected - res.Expired - res.Skipped - res.Failed
			break
		}
		_, err := s.transition(ctx, app.ID, models.SystemActor, models.ApplicationRejected, ExpiredNote,
			notify.EventExpired, models.ApplicationPending)
		switch {
		case err == nil:
			res.Expired++
		case errors.Is(err, apperr.ErrInvalidTransition):
			res.Skipped++
		default:
			res.Failed++
			s.opts.logger.ErrorContext(ctx, "expire application failed",
				"application_id", app.ID, "job_id", app.JobID, "error", err)
		}
	}

	s.opts.logger.InfoContext(ctx, "expiry sweep finished",
		"cutoff", cutoff, "selected", res.Selected, "expired", res.Expired,
		"skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// GetApplication returns an application with its full history if actor may see it.
func (s *ApplicationService) GetApplication(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Application, error) {
	app, err := cache.GetOrLoad(ctx, s.memo, cache.ApplicationKey(id), nil,
		func(ctx context.Context) (*models.Application, error) {
			return s.store.GetApplication(ctx, id)
		})
	if err != nil {
		return nil, fromStore(err, "application")
	}

	ownerID, err := s.jobOwner(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanView(actor, app.ApplicantID, ownerID) {
		return nil, apperr.Forbidden("not allowed to view this application")
	}
	return app, nil
}

// ListApplications lists applications visible to actor. Applicants see their
// own; companies list by one of their jobs; admins list anything.
func (s *ApplicationService) ListApplications(ctx context.Context, actor models.Actor, filter store.ApplicationFilter) (*ApplicationList, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleAmbassador:
		if filter.ApplicantID != uuid.Nil && filter.ApplicantID != actor.ID {
			return nil, apperr.Forbidden("applicants may only list their own applications")
		}
		filter.ApplicantID = actor.ID
	case models.RoleCompany:
		if filter.JobID == uuid.Nil {
			return nil, apperr.Forbidden("companies must list applications by job")
		}
		ownerID, err := s.jobOwner(ctx, filter.JobID)
		if err != nil {
			return nil, err
		}
		if ownerID != actor.ID {
			return nil, apperr.Forbidden("job belongs to another company")
		}
	default:
		return nil, apperr.Forbidden("role %s may not list applications", actor.Role)
	}

	filter.Page, filter.Limit = store.NormalizePage(filter.Page, filter.Limit)
	key, indexes := applicationListKey(filter)

	list, err := cache.GetOrLoad(ctx, s.memo, key, indexes,
		func(ctx context.Context) (*ApplicationList, error) {
			items, total, err := s.store.ListApplications(ctx, filter)
			if err != nil {
				return nil, err
			}
			return &ApplicationList{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
		})
	if err != nil {
		return nil, fromStore(err, "applications")
	}
	return list, nil
}

func applicationListKey(f store.ApplicationFilter) (string, []string) {
	hash := cache.QueryHash(f)
	var indexes []string
	if f.JobID != uuid.Nil {
		indexes = append(indexes, cache.JobApplicationsIndex(f.JobID))
	}
	if f.ApplicantID != uuid.Nil {
		indexes = append(indexes, cache.ApplicantApplicationsIndex(f.ApplicantID))
	}
	switch {
	case f.JobID != uuid.Nil:
		return cache.ApplicationsByJobKey(f.JobID, hash), indexes
	case f.ApplicantID != uuid.Nil:
		return cache.ApplicationsByApplicantKey(f.ApplicantID, hash), indexes
	default:
		return cache.ApplicationsKey(hash), []string{cache.AllApplicationsIndex}
	}
}

func (s *ApplicationService) jobOwner(ctx context.Context, jobID uuid.UUID) (uuid.UUID, error) {
	job, err := cache.GetOrLoad(ctx, s.memo, cache.JobKey(jobID), nil,
		func(ctx context.Context) (*models.Job, error) {
			return s.store.GetJob(ctx, jobID)
		})
	if err != nil {
		return uuid.Nil, fromStore(err, "job")
	}
	return job.CompanyID, nil
}

// recipient resolves who an event goes to. It runs before the write so no
// lookup sits on the response path after commit; a failed lookup only costs
// the notification.
func (s *ApplicationService) recipient(ctx context.Context, userID uuid.UUID) *models.User {
	if s.notifier == nil {
		return nil
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.opts.logger.WarnContext(ctx, "notification recipient not resolved", "user_id", userID, "error", err)
		return nil
	}
	return u
}

// sender builds a deferred notification to an already resolved recipient.
// It returns nil when there is no one to notify.
func (s *ApplicationService) sender(kind notify.EventKind, app *models.Application, job *models.Job, actorID uuid.UUID, to *models.User, notes string) func(context.Context) error {
	if to == nil {
		return nil
	}
	return func(ctx context.Context) error {
		data := map[string]string{
			"jobTitle":      job.Title,
			"recipientName": to.DisplayName,
			"status":        string(app.Status),
		}
		if notes != "" {
			data["notes"] = notes
		}

		err := s.notifier.Notify(ctx, notify.Event{
			Kind:             kind,
			ApplicationID:    app.ID,
			JobID:            app.JobID,
			ActorID:          actorID,
			NewStatus:        app.Status,
			RecipientAddress: to.Email,
			TemplateData:     data,
			OccurredAt:       app.LastStatusUpdate,
		})
		if err != nil {
			return fmt.Errorf("notify %s for application %s: %w", kind, app.ID, err)
		}
		return nil
	}
}
