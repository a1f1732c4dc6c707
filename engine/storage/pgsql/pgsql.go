// Package pgsql implements a workflow engine storage backend using PostgreSQL.
package pgsql

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/utils/uuid"
	"github.com/assessflow/assessflow/workflow"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema contains the PostgreSQL schema for the workflow engine storage.
//
//go:embed schema.sql
var Schema string

// pgErrUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgErrUniqueViolation = "23505"

// PgSQLStorage implements a storage.Storage using PostgreSQL.
type PgSQLStorage struct {
	pool *pgxpool.Pool
	ider uuid.IDer
}

type config struct {
	dsn  string
	pool *pgxpool.Pool
	ider uuid.IDer
}

// Option allows configuring a PgSQLStorage.
type Option func(*config)

// WithDSN sets the storage PostgreSQL connection string.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithPool sets a custom connection pool to the storage.
//
// If set, the DSN passed via WithDSN is ignored.
func WithPool(pool *pgxpool.Pool) Option {
	return func(c *config) {
		c.pool = pool
	}
}

// WithIDer sets the workflow ID generator. Default is random UUIDs.
func WithIDer(ider uuid.IDer) Option {
	return func(c *config) {
		c.ider = ider
	}
}

// New creates and returns a new PgSQLStorage.
func New(ctx context.Context, opts ...Option) (*PgSQLStorage, error) {
	cfg := &config{ider: uuid.NewUUID()}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.pool == nil {
		cfg.pool, err = pgxpool.New(ctx, cfg.dsn)
		if err != nil {
			return nil, err
		}
	}
	if err = cfg.pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &PgSQLStorage{pool: cfg.pool, ider: cfg.ider}, nil
}

// Close closes the connection pool.
func (s *PgSQLStorage) Close() {
	s.pool.Close()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

const returnColumns = `workflow_id, submission_id, status, created_at, modified_at`

func scanRecord(row pgx.Row, notFound string) (*storage.Record, error) {
	var (
		r      storage.Record
		status string
	)
	err := row.Scan(&r.WorkflowID, &r.SubmissionID, &status, &r.Created, &r.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, notFound)
	} else if err != nil {
		return nil, err
	}
	if r.Status, err = workflow.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", r.WorkflowID, err)
	}
	r.Created = r.Created.UTC()
	r.Modified = r.Modified.UTC()
	return &r, nil
}

// CreateWorkflow creates a new workflow for submissionID with status.
// See the storage interface type for further docs.
func (s *PgSQLStorage) CreateWorkflow(ctx context.Context, submissionID string, status workflow.Status) (*storage.Record, error) {
	if submissionID == "" {
		return nil, storage.ErrMissingSubmissionID
	}
	ts := now()
	r := &storage.Record{
		WorkflowID:   s.ider.ID(),
		SubmissionID: submissionID,
		Status:       status,
		Created:      ts,
		Modified:     ts,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validating record: %w", err)
	}
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO workflows (`+returnColumns+`) VALUES ($1, $2, $3, $4, $5);`,
		r.WorkflowID,
		r.SubmissionID,
		string(r.Status),
		r.Created,
		r.Modified,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: workflow exists for submission %s", storage.ErrConflict, submissionID)
	} else if err != nil {
		return nil, fmt.Errorf("inserting workflow: %w", err)
	}
	return r, nil
}

// RetrieveWorkflowBySubmission retrieves the workflow for submissionID.
// See the storage interface type for further docs.
func (s *PgSQLStorage) RetrieveWorkflowBySubmission(ctx context.Context, submissionID string) (*storage.Record, error) {
	if submissionID == "" {
		return nil, storage.ErrMissingSubmissionID
	}
	return scanRecord(
		s.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM workflows WHERE submission_id = $1;`, submissionID),
		"submission "+submissionID,
	)
}

// RetrieveWorkflow retrieves the workflow by its workflow ID.
// See the storage interface type for further docs.
func (s *PgSQLStorage) RetrieveWorkflow(ctx context.Context, workflowID string) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	return scanRecord(
		s.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM workflows WHERE workflow_id = $1;`, workflowID),
		"workflow id "+workflowID,
	)
}

// UpdateWorkflowStatus atomically changes the status of workflowID from expected to status.
// See the storage interface type for further docs.
func (s *PgSQLStorage) UpdateWorkflowStatus(ctx context.Context, workflowID string, expected, status workflow.Status) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, status)
	}
	r, err := scanRecord(
		s.pool.QueryRow(
			ctx,
			`UPDATE workflows SET status = $1, modified_at = $2 WHERE workflow_id = $3 AND status = $4 RETURNING `+returnColumns+`;`,
			string(status),
			now(),
			workflowID,
			string(expected),
		),
		"workflow id "+workflowID,
	)
	if !errors.Is(err, storage.ErrNotFound) {
		return r, err
	}

	// no row updated: either the workflow does not exist or its status moved on
	cur, err := s.RetrieveWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return nil, storage.NewErrConflictStatus(workflowID, expected, cur.Status)
}
