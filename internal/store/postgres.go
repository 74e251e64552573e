package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithQueryTimeout bounds every store call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *PostgresStore) {
		s.queryTimeout = d
	}
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return s.inTxWith(ctx, pgx.TxOptions{}, fn)
}

// snapshotRead is for multi-statement reads that must agree with each other.
var snapshotRead = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (s *PostgresStore) inTxWith(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, role, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts an account. Used by provisioning tooling and tests.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT k.id, k.user_id, u.role, k.name, k.key_hash, k.key_prefix, k.last_used_at, k.deleted_at, k.created_at, k.updated_at
		 FROM api_keys k JOIN users u ON u.id = k.user_id
		 WHERE k.key_prefix = $1 AND k.deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Role, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// CreateAPIKey stores a provisioned key hash.
func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, company_id, title, description, location, status, application_count,
	max_applications, moderation_note, published_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.Location, &j.Status,
		&j.ApplicationCount, &j.MaxApplications, &j.ModerationNote, &j.PublishedAt,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, company_id, title, description, location, status, application_count, max_applications, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9)`,
		job.ID, job.CompanyID, job.Title, job.Description, job.Location, job.Status,
		job.MaxApplications, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("create job: company: %w", ErrNotFound)
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	j, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.CompanyID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argIdx))
		args = append(args, filter.CompanyID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// UpdateJobStatus moves a job from one status to another with a conditional
// update. It returns ErrStatusConflict if the job is no longer in from.
// application_count is never written here.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to models.JobStatus, opts ...JobUpdateOption) (*models.Job, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	query := `UPDATE jobs SET status = $3, updated_at = NOW()`
	args := []any{id, from, to}

	if to == models.JobStatusActive {
		query += ", published_at = COALESCE(published_at, NOW())"
	}
	if params.ModerationNote != nil {
		args = append(args, *params.ModerationNote)
		query += fmt.Sprintf(", moderation_note = $%d", len(args))
	}

	query += " WHERE id = $1 AND status = $2 RETURNING " + jobColumns

	j, err := scanJob(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return j, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
