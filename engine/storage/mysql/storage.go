package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/workflow"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const selectWorkflow = `
SELECT
    workflow_id,
    submission_id,
    status,
    created_at,
    modified_at
FROM
    workflows
WHERE
`

func scanRecord(row *sql.Row, notFound string) (*storage.Record, error) {
	var (
		r      storage.Record
		status string
	)
	err := row.Scan(&r.WorkflowID, &r.SubmissionID, &status, &r.Created, &r.Modified)
	if errors.Is(err, sql.ErrNoRows) {
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

func retrieveWorkflow(ctx context.Context, q queryer, workflowID string) (*storage.Record, error) {
	return scanRecord(
		q.QueryRowContext(ctx, selectWorkflow+`workflow_id = ?;`, workflowID),
		"workflow id "+workflowID,
	)
}

// CreateWorkflow creates a new workflow for submissionID with status.
// See the storage interface type for further docs.
func (s *MySQLStorage) CreateWorkflow(ctx context.Context, submissionID string, status workflow.Status) (*storage.Record, error) {
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
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO workflows (workflow_id, submission_id, status, created_at, modified_at) VALUES (?, ?, ?, ?, ?);`,
		r.WorkflowID,
		r.SubmissionID,
		string(r.Status),
		r.Created,
		r.Modified,
	)
	if isDupEntry(err) {
		return nil, fmt.Errorf("%w: workflow exists for submission %s", storage.ErrConflict, submissionID)
	} else if err != nil {
		return nil, fmt.Errorf("inserting workflow: %w", err)
	}
	return r, nil
}

// RetrieveWorkflowBySubmission retrieves the workflow for submissionID.
// See the storage interface type for further docs.
func (s *MySQLStorage) RetrieveWorkflowBySubmission(ctx context.Context, submissionID string) (*storage.Record, error) {
	if submissionID == "" {
		return nil, storage.ErrMissingSubmissionID
	}
	return scanRecord(
		s.db.QueryRowContext(ctx, selectWorkflow+`submission_id = ?;`, submissionID),
		"submission "+submissionID,
	)
}

// RetrieveWorkflow retrieves the workflow by its workflow ID.
// See the storage interface type for further docs.
func (s *MySQLStorage) RetrieveWorkflow(ctx context.Context, workflowID string) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	return retrieveWorkflow(ctx, s.db, workflowID)
}

// UpdateWorkflowStatus atomically changes the status of workflowID from expected to status.
// See the storage interface type for further docs.
func (s *MySQLStorage) UpdateWorkflowStatus(ctx context.Context, workflowID string, expected, status workflow.Status) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, status)
	}
	var ret *storage.Record
	err := tx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE workflows SET status = ?, modified_at = ? WHERE workflow_id = ? AND status = ?;`,
			string(status),
			now(),
			workflowID,
			string(expected),
		)
		if err != nil {
			return fmt.Errorf("updating workflow status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		ret, err = retrieveWorkflow(ctx, tx, workflowID)
		if err != nil {
			return err
		}
		if affected < 1 {
			return storage.NewErrConflictStatus(workflowID, expected, ret.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
