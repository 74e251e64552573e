// Package notify delivers application lifecycle events to an external mailer.
//
// Delivery is best-effort: callers never wait for, or fail because of, a
// notification.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

type EventKind string

const (
	EventSubmitted     EventKind = "application.submitted"
	EventStatusChanged EventKind = "application.status_changed"
	EventExpired       EventKind = "application.expired"
)

// Event is one message for one recipient.
type Event struct {
	Kind             EventKind                `json:"kind"`
	ApplicationID    uuid.UUID                `json:"applicationId"`
	JobID            uuid.UUID                `json:"jobId"`
	ActorID          uuid.UUID                `json:"actorId"`
	NewStatus        models.ApplicationStatus `json:"newStatus"`
	RecipientAddress string                   `json:"recipientAddress"`
	TemplateData     map[string]string        `json:"templateData,omitempty"`
	OccurredAt       time.Time                `json:"occurredAt"`
}

// Dispatcher sends events. Implementations must be safe for concurrent use.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}
