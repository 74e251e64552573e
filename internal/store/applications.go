package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

const applicationColumns = `id, job_id, applicant_id, status, cover_letter, resume_url, expected_salary,
	availability, years_experience, last_status_update, created_at, updated_at`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.JobID, &a.ApplicantID, &a.Status, &a.CoverLetter, &a.ResumeURL,
		&a.ExpectedSalary, &a.Availability, &a.YearsExperience, &a.LastStatusUpdate,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication persists a new application together with its first history
// entry and the job counter increment. Either all three writes land or none do.
//
// The application must carry exactly one history entry (the submission).
func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.Application) error {
	if len(app.StatusHistory) != 1 {
		return fmt.Errorf("create application: expected one initial history entry, got %d", len(app.StatusHistory))
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := incrementApplicationCount(ctx, tx, app.JobID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO applications (id, job_id, applicant_id, status, cover_letter, resume_url,
			   expected_salary, availability, years_experience, last_status_update, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			app.ID, app.JobID, app.ApplicantID, app.Status, app.CoverLetter, app.ResumeURL,
			app.ExpectedSalary, app.Availability, app.YearsExperience, app.LastStatusUpdate,
			app.CreatedAt, app.UpdatedAt)
		if err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("create application: %w", ErrDuplicateKey)
			}
			if isForeignKeyError(err) {
				return fmt.Errorf("create application: applicant: %w", ErrNotFound)
			}
			return fmt.Errorf("create application: %w", err)
		}

		return insertHistory(ctx, tx, app.ID, app.StatusHistory[0])
	})
}

func insertHistory(ctx context.Context, q querier, applicationID uuid.UUID, c models.StatusChange) error {
	_, err := q.Exec(ctx,
		`INSERT INTO application_status_history (application_id, status, actor_id, notes, changed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		applicationID, c.Status, c.ActorID, c.Notes, c.ChangedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// GetApplication returns an application with its full history. Both reads
// share one snapshot, so the status always matches the last history entry.
func (s *PostgresStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var app *models.Application
	err := s.inTxWith(ctx, snapshotRead, func(tx pgx.Tx) error {
		var err error
		app, err = scanApplication(tx.QueryRow(ctx,
			`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}

		app.StatusHistory, err = loadHistory(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func loadHistory(ctx context.Context, q querier, applicationID uuid.UUID) ([]models.StatusChange, error) {
	rows, err := q.Query(ctx,
		`SELECT status, actor_id, notes, changed_at FROM application_status_history
		 WHERE application_id = $1 ORDER BY id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("get status history: %w", err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.Status, &c.ActorID, &c.Notes, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return history, nil
}

// ListApplications returns matching applications without their history.
func (s *PostgresStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.JobID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIdx))
		args = append(args, filter.JobID)
		argIdx++
	}
	if filter.ApplicantID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("applicant_id = $%d", argIdx))
		args = append(args, filter.ApplicantID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM applications WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(`SELECT %s FROM applications WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		applicationColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// TransitionApplication moves an application out of from with a conditional
// update, appends the history entry and, for a withdrawal from a counted
// status, releases the job slot. All in one transaction.
//
// ErrStatusConflict means another writer moved the application first.
func (s *PostgresStore) TransitionApplication(ctx context.Context, id uuid.UUID, from models.ApplicationStatus, change models.StatusChange) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx pgx.Tx) error {
		var jobID uuid.UUID
		err := tx.QueryRow(ctx,
			`UPDATE applications SET status = $3, last_status_update = $4, updated_at = $4
			 WHERE id = $1 AND status = $2
			 RETURNING job_id`,
			id, from, change.Status, change.ChangedAt,
		).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("check application: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return fmt.Errorf("transition application %s from %s: %w", id, from, ErrStatusConflict)
		}
		if err != nil {
			return fmt.Errorf("transition application: %w", err)
		}

		if err := insertHistory(ctx, tx, id, change); err != nil {
			return err
		}

		if change.Status == models.ApplicationWithdrawn && from.Counted() {
			return decrementApplicationCount(ctx, tx, jobID)
		}
		return nil
	})
}

// ListStalePending returns pending applications created before the cutoff,
// oldest first.
func (s *PostgresStore) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Application, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at LIMIT $3`,
		models.ApplicationPending, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
