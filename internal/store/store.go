package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrStatusConflict is returned by conditional status updates when the record
// is no longer in the expected status.
var ErrStatusConflict = errors.New("status changed concurrently")

// Submission failures detected atomically with the capacity counter.
var (
	ErrJobNotAccepting   = errors.New("job is not accepting applications")
	ErrCapacityExhausted = errors.New("job application capacity exhausted")
)

// Store is the data access interface. All database operations go through here.
//
// Job.ApplicationCount has no setter: it is adjusted only inside CreateApplication
// and TransitionApplication, in the same transaction as the application write.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to models.JobStatus, opts ...JobUpdateOption) (*models.Job, error)

	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int, error)
	TransitionApplication(ctx context.Context, id uuid.UUID, from models.ApplicationStatus, change models.StatusChange) error
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Application, error)
}

type JobFilter struct {
	CompanyID uuid.UUID
	Status    models.JobStatus
	Page      int
	Limit     int
}

type ApplicationFilter struct {
	JobID       uuid.UUID
	ApplicantID uuid.UUID
	Status      models.ApplicationStatus
	Page        int
	Limit       int
}

type jobUpdateParams struct {
	ModerationNote *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithModerationNote(note string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ModerationNote = &note
	}
}

// NormalizePage clamps pagination to 1-based pages of at most 100 rows.
func NormalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return page, limit
}
