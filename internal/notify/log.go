package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher writes events to the structured log. Used in development and
// when NOTIFY_DRIVER=log.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(ctx context.Context, event Event) error {
	d.logger.InfoContext(ctx, "notification",
		"kind", event.Kind,
		"application_id", event.ApplicationID,
		"job_id", event.JobID,
		"actor_id", event.ActorID,
		"new_status", event.NewStatus,
		"to", event.RecipientAddress,
	)
	return nil
}
