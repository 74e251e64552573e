package lifecycle

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

type jobEdge struct {
	to    models.JobStatus
	roles []models.Role
}

var (
	ownerOnly    = []models.Role{models.RoleCompany}
	adminOnly    = []models.Role{models.RoleAdmin}
	ownerOrAdmin = []models.Role{models.RoleCompany, models.RoleAdmin}
)

// jobTransitions is the moderation/publication graph. Closed and cancelled are terminal.
var jobTransitions = map[models.JobStatus][]jobEdge{
	models.JobStatusDraft: {
		{models.JobStatusPending, ownerOnly},
	},
	models.JobStatusPending: {
		{models.JobStatusActive, adminOnly},
		{models.JobStatusRejected, adminOnly},
	},
	models.JobStatusActive: {
		{models.JobStatusPaused, ownerOrAdmin},
		{models.JobStatusClosed, ownerOrAdmin},
		{models.JobStatusCancelled, ownerOrAdmin},
	},
	models.JobStatusPaused: {
		{models.JobStatusActive, ownerOrAdmin},
		{models.JobStatusClosed, ownerOrAdmin},
		{models.JobStatusCancelled, ownerOrAdmin},
	},
	models.JobStatusRejected: {
		{models.JobStatusDraft, ownerOnly},
	},
}

func ParseJobStatus(s string) (models.JobStatus, bool) {
	st := models.JobStatus(s)
	switch st {
	case models.JobStatusDraft, models.JobStatusPending, models.JobStatusActive, models.JobStatusPaused,
		models.JobStatusClosed, models.JobStatusCancelled, models.JobStatusRejected:
		return st, true
	}
	return "", false
}

// CheckJob validates a job status change for the given actor against the job's owner.
func CheckJob(from, to models.JobStatus, actor models.Actor, ownerID uuid.UUID) error {
	if _, ok := ParseJobStatus(string(to)); !ok {
		return apperr.InvalidTransition("unknown job status %q", to)
	}
	if actor.Role == models.RoleCompany && actor.ID != ownerID {
		return apperr.Forbidden("job belongs to another company")
	}
	for _, e := range jobTransitions[from] {
		if e.to != to {
			continue
		}
		for _, r := range e.roles {
			if r == actor.Role {
				return nil
			}
		}
		return apperr.Forbidden("role %s may not move a job from %s to %s", actor.Role, from, to)
	}
	if from == to {
		return apperr.InvalidTransition("job is already %s", from)
	}
	if len(jobTransitions[from]) == 0 {
		return apperr.InvalidTransition("job is %s; no further transitions are permitted", from)
	}
	return apperr.InvalidTransition("cannot move job from %s to %s", from, to)
}
