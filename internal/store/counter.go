package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// incrementApplicationCount reserves one slot on an active job in a single
// conditional UPDATE. Concurrent submissions cannot overshoot max_applications.
func incrementApplicationCount(ctx context.Context, q querier, jobID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`UPDATE jobs SET application_count = application_count + 1, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		   AND (max_applications IS NULL OR application_count < max_applications)
		 RETURNING application_count`,
		jobID, models.JobStatusActive,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, classifyIncrementMiss(ctx, q, jobID)
	}
	if err != nil {
		return 0, fmt.Errorf("increment application count: %w", err)
	}
	return count, nil
}

// classifyIncrementMiss explains why the conditional increment matched no row.
func classifyIncrementMiss(ctx context.Context, q querier, jobID uuid.UUID) error {
	var status models.JobStatus
	err := q.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("classify increment miss: %w", err)
	}
	if !status.AcceptsApplications() {
		return fmt.Errorf("job %s is %s: %w", jobID, status, ErrJobNotAccepting)
	}
	return fmt.Errorf("job %s: %w", jobID, ErrCapacityExhausted)
}

// decrementApplicationCount releases one slot. The guard keeps the counter
// non-negative; a miss is logged and treated as a no-op.
func decrementApplicationCount(ctx context.Context, q querier, jobID uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`UPDATE jobs SET application_count = application_count - 1, updated_at = NOW()
		 WHERE id = $1 AND application_count > 0`, jobID)
	if err != nil {
		return fmt.Errorf("decrement application count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		slog.WarnContext(ctx, "application count decrement skipped, counter already zero",
			"job_id", jobID)
	}
	return nil
}
