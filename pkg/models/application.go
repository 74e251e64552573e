package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the state of an application in the review workflow.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationReviewing   ApplicationStatus = "reviewing"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationInterview   ApplicationStatus = "interview"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// Terminal reports whether no further transitions are permitted from s.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected || s == ApplicationWithdrawn
}

// Counted reports whether an application in s contributes to its job's application count.
func (s ApplicationStatus) Counted() bool {
	return s != ApplicationWithdrawn && s != ""
}

// StatusChange is one immutable entry of an application's audit trail.
type StatusChange struct {
	Status    ApplicationStatus `db:"status"     json:"status"`
	ActorID   uuid.UUID         `db:"actor_id"   json:"actor_id"`
	Notes     string            `db:"notes"      json:"notes,omitempty"`
	ChangedAt time.Time         `db:"changed_at" json:"changed_at"`
}

// Application is an ambassador's application to a job. Exactly one exists per (job, applicant).
// Status always equals the status of the last StatusHistory entry.
type Application struct {
	ID               uuid.UUID         `db:"id"                 json:"id"`
	JobID            uuid.UUID         `db:"job_id"             json:"job_id"`
	ApplicantID      uuid.UUID         `db:"applicant_id"       json:"applicant_id"`
	Status           ApplicationStatus `db:"status"             json:"status"`
	CoverLetter      string            `db:"cover_letter"       json:"cover_letter"`
	ResumeURL        string            `db:"resume_url"         json:"resume_url,omitempty"`
	ExpectedSalary   *int              `db:"expected_salary"    json:"expected_salary,omitempty"`
	Availability     *string           `db:"availability"       json:"availability,omitempty"`
	YearsExperience  *int              `db:"years_experience"   json:"years_experience,omitempty"`
	StatusHistory    []StatusChange    `db:"-"                  json:"status_history,omitempty"`
	LastStatusUpdate time.Time         `db:"last_status_update" json:"last_status_update"`
	CreatedAt        time.Time         `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at"         json:"updated_at"`
}

// ApplicationPayload carries the applicant-supplied fields of a submission.
type ApplicationPayload struct {
	CoverLetter     string
	ResumeURL       string
	ExpectedSalary  *int
	Availability    *string
	YearsExperience *int
}
