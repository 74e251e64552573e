package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// GenerationKey holds the invalidation counter of a cache key or index.
func GenerationKey(keyOrIndex string) string {
	return "gen:" + keyOrIndex
}

func ApplicationKey(id uuid.UUID) string {
	return fmt.Sprintf("application:%s", id)
}

func ApplicationsByJobKey(jobID uuid.UUID, queryHash string) string {
	return fmt.Sprintf("applications:job:%s:%s", jobID, queryHash)
}

func ApplicationsByApplicantKey(applicantID uuid.UUID, queryHash string) string {
	return fmt.Sprintf("applications:applicant:%s:%s", applicantID, queryHash)
}

// ApplicationsKey is used for unscoped (admin) listings.
func ApplicationsKey(queryHash string) string {
	return fmt.Sprintf("applications:all:%s", queryHash)
}

func JobKey(id uuid.UUID) string {
	return fmt.Sprintf("job:%s", id)
}

func JobListKey(queryHash string) string {
	return fmt.Sprintf("jobs:list:%s", queryHash)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// Index sets grouping listing keys by the entity they depend on.
func JobApplicationsIndex(jobID uuid.UUID) string {
	return fmt.Sprintf("idx:applications:job:%s", jobID)
}

func ApplicantApplicationsIndex(applicantID uuid.UUID) string {
	return fmt.Sprintf("idx:applications:applicant:%s", applicantID)
}

const (
	AllApplicationsIndex = "idx:applications:all"
	JobsIndex            = "idx:jobs"
)

// QueryHash returns a stable short hash of a filter value.
func QueryHash(filter any) string {
	b, err := json.Marshal(filter)
	if err != nil {
		b = []byte(fmt.Sprintf("%+v", filter))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Dependents is the set of cache entries a mutation makes stale.
type Dependents struct {
	Keys    []string
	Indexes []string
}

// ApplicationDependents is everything an application write invalidates. The
// job key is included because application_count may have changed.
func ApplicationDependents(app *models.Application) Dependents {
	return Dependents{
		Keys: []string{
			ApplicationKey(app.ID),
			JobKey(app.JobID),
		},
		Indexes: []string{
			JobApplicationsIndex(app.JobID),
			ApplicantApplicationsIndex(app.ApplicantID),
			AllApplicationsIndex,
			JobsIndex,
		},
	}
}

// JobDependents is everything a job write invalidates.
func JobDependents(jobID uuid.UUID) Dependents {
	return Dependents{
		Keys:    []string{JobKey(jobID)},
		Indexes: []string{JobsIndex},
	}
}
