package lifecycle_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCheckJob(t *testing.T) {
	owner := uuid.New()
	company := models.Actor{ID: owner, Role: models.RoleCompany}
	otherCompany := models.Actor{ID: uuid.New(), Role: models.RoleCompany}
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	ambassador := models.Actor{ID: uuid.New(), Role: models.RoleAmbassador}

	tests := []struct {
		name  string
		from  models.JobStatus
		to    models.JobStatus
		actor models.Actor
		kind  error
	}{
		{"owner submits draft", models.JobStatusDraft, models.JobStatusPending, company, nil},
		{"admin approves", models.JobStatusPending, models.JobStatusActive, admin, nil},
		{"admin rejects", models.JobStatusPending, models.JobStatusRejected, admin, nil},
		{"owner cannot self-approve", models.JobStatusPending, models.JobStatusActive, company, apperr.ErrForbidden},
		{"owner pauses", models.JobStatusActive, models.JobStatusPaused, company, nil},
		{"admin closes", models.JobStatusActive, models.JobStatusClosed, admin, nil},
		{"owner resumes", models.JobStatusPaused, models.JobStatusActive, company, nil},
		{"owner revises rejected", models.JobStatusRejected, models.JobStatusDraft, company, nil},
		{"other company", models.JobStatusActive, models.JobStatusPaused, otherCompany, apperr.ErrForbidden},
		{"ambassador cannot pause", models.JobStatusActive, models.JobStatusPaused, ambassador, apperr.ErrForbidden},
		{"closed is terminal", models.JobStatusClosed, models.JobStatusActive, company, apperr.ErrInvalidTransition},
		{"cancelled is terminal", models.JobStatusCancelled, models.JobStatusDraft, admin, apperr.ErrInvalidTransition},
		{"no skip to active", models.JobStatusDraft, models.JobStatusActive, admin, apperr.ErrInvalidTransition},
		{"unknown target", models.JobStatusDraft, models.JobStatus("filled"), company, apperr.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lifecycle.CheckJob(tt.from, tt.to, tt.actor, owner)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestJobStatus_AcceptsApplications(t *testing.T) {
	assert.True(t, models.JobStatusActive.AcceptsApplications())
	for _, s := range []models.JobStatus{
		models.JobStatusDraft, models.JobStatusPending, models.JobStatusPaused,
		models.JobStatusClosed, models.JobStatusCancelled, models.JobStatusRejected,
	} {
		assert.False(t, s.AcceptsApplications(), s)
	}
}
