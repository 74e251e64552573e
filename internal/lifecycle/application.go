// Package lifecycle holds the transition graphs for applications and jobs and
// the role rules that gate each edge. Everything here is pure; persistence and
// side effects live in the service package.
package lifecycle

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// applicationTransitions lists every allowed (from -> to) pair.
// Terminal statuses have no entry.
var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationPending:     {models.ApplicationReviewing, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationReviewing:   {models.ApplicationShortlisted, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationShortlisted: {models.ApplicationInterview, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationInterview:   {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationWithdrawn},
}

// ParseApplicationStatus converts a raw wire value to a status.
func ParseApplicationStatus(s string) (models.ApplicationStatus, bool) {
	st := models.ApplicationStatus(s)
	switch st {
	case models.ApplicationPending, models.ApplicationReviewing, models.ApplicationShortlisted,
		models.ApplicationInterview, models.ApplicationAccepted, models.ApplicationRejected,
		models.ApplicationWithdrawn:
		return st, true
	}
	return "", false
}

// Allowed reports whether from -> to is an edge of the graph.
func Allowed(from, to models.ApplicationStatus) bool {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check validates a transition for a role: the role must be able to drive the
// target status, and the edge must exist.
func Check(from, to models.ApplicationStatus, role models.Role) error {
	if err := AuthorizeRole(role, to); err != nil {
		return err
	}
	return ValidateEdge(from, to)
}

// AuthorizeRole decides whether role may move an application into target.
//
// Withdrawal belongs to the applicant alone. Every other move is a review
// decision taken by the job owner or an admin. The system actor may only reject,
// which is how stale applications expire.
func AuthorizeRole(role models.Role, target models.ApplicationStatus) error {
	if !role.Valid() {
		return apperr.Forbidden("unknown role %q", role)
	}
	if target == models.ApplicationWithdrawn {
		if role != models.RoleAmbassador {
			return apperr.Forbidden("only the applicant may withdraw an application")
		}
		return nil
	}
	switch role {
	case models.RoleCompany, models.RoleAdmin:
		return nil
	case models.RoleSystem:
		if target == models.ApplicationRejected {
			return nil
		}
		return apperr.Forbidden("system actor may only reject applications")
	default:
		return apperr.Forbidden("applicants may only withdraw their application")
	}
}

// ValidateEdge returns an InvalidTransition error naming the violated rule when
// from -> to is not part of the graph.
func ValidateEdge(from, to models.ApplicationStatus) error {
	if _, ok := ParseApplicationStatus(string(to)); !ok {
		return apperr.InvalidTransition("unknown application status %q", to)
	}
	if Allowed(from, to) {
		return nil
	}
	switch {
	case from == models.ApplicationAccepted && to == models.ApplicationWithdrawn:
		return apperr.InvalidTransition("cannot withdraw an accepted application")
	case from == to:
		return apperr.InvalidTransition("application is already %s", from)
	case from.Terminal():
		return apperr.InvalidTransition("application is %s; no further transitions are permitted", from)
	default:
		return apperr.InvalidTransition("cannot move application from %s to %s", from, to)
	}
}

// AuthorizeParty checks that the actor is the party entitled to act on this
// particular application: the applicant for withdrawals, the owning company for
// review decisions. Admins and the system actor are not tied to a party.
func AuthorizeParty(actor models.Actor, applicantID, ownerID uuid.UUID, target models.ApplicationStatus) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystem:
		return nil
	case models.RoleAmbassador:
		if actor.ID != applicantID {
			return apperr.Forbidden("application belongs to another applicant")
		}
	case models.RoleCompany:
		if actor.ID != ownerID {
			return apperr.Forbidden("application belongs to another company's job")
		}
	default:
		return apperr.Forbidden("unknown role %q", actor.Role)
	}
	return nil
}

// CanView reports whether the actor may read an application.
func CanView(actor models.Actor, applicantID, ownerID uuid.UUID) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystem:
		return true
	case models.RoleAmbassador:
		return actor.ID == applicantID
	case models.RoleCompany:
		return actor.ID == ownerID
	}
	return false
}
