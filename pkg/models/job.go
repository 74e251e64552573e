package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the moderation/publication state of a job posting.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusClosed    JobStatus = "closed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusRejected  JobStatus = "rejected"
)

// AcceptsApplications reports whether new applications may be submitted to a job in this status.
func (s JobStatus) AcceptsApplications() bool {
	return s == JobStatusActive
}

// Job is a posting owned by a company. ApplicationCount is maintained only by the
// application state machine through the store's atomic counter.
type Job struct {
	ID               uuid.UUID  `db:"id"                json:"id"`
	CompanyID        uuid.UUID  `db:"company_id"        json:"company_id"`
	Title            string     `db:"title"             json:"title"`
	Description      string     `db:"description"       json:"description"`
	Location         string     `db:"location"          json:"location,omitempty"`
	Status           JobStatus  `db:"status"            json:"status"`
	ApplicationCount int        `db:"application_count" json:"application_count"`
	MaxApplications  *int       `db:"max_applications"  json:"max_applications,omitempty"`
	ModerationNote   *string    `db:"moderation_note"   json:"moderation_note,omitempty"`
	PublishedAt      *time.Time `db:"published_at"      json:"published_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"        json:"updated_at"`
}

// HasCapacity reports whether the job can take one more application.
func (j *Job) HasCapacity() bool {
	return j.MaxApplications == nil || j.ApplicationCount < *j.MaxApplications
}
