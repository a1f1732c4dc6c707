// Package storage defines types and primitives for workflow engine storage backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assessflow/assessflow/workflow"
)

var (
	// ErrNotFound is returned when a workflow record does not exist.
	ErrNotFound = errors.New("workflow not found")

	// ErrConflict is returned when a workflow already exists for a
	// submission or when a compare-and-swap status update lost a race.
	ErrConflict = errors.New("workflow conflict")

	ErrMissingSubmissionID = errors.New("missing submission id")
	ErrMissingWorkflowID   = errors.New("missing workflow id")
)

// Record is the persisted state of a single workflow.
// There is at most one Record per submission.
type Record struct {
	WorkflowID   string          `json:"uuid"`
	SubmissionID string          `json:"submission_uuid"`
	Status       workflow.Status `json:"status"`
	Created      time.Time       `json:"created"`
	Modified     time.Time       `json:"modified"`
}

// Validate checks for missing or invalid values.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("empty record")
	}
	if r.WorkflowID == "" {
		return ErrMissingWorkflowID
	}
	if r.SubmissionID == "" {
		return ErrMissingSubmissionID
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, r.Status)
	}
	return nil
}

// NewErrConflictStatus returns a conflict error for a status mismatch.
func NewErrConflictStatus(workflowID string, expected, have workflow.Status) error {
	return fmt.Errorf("%w: workflow %s: expected status %s, have %s", ErrConflict, workflowID, expected, have)
}

// Storage is the primary interface for workflow engine backend storage implementations.
type Storage interface {
	// CreateWorkflow creates a new workflow for submissionID with status.
	// The workflow ID is assigned by the implementation and the created
	// and modified times are set to the current time.
	// Returns an error wrapping ErrConflict if a workflow already
	// exists for submissionID.
	CreateWorkflow(ctx context.Context, submissionID string, status workflow.Status) (*Record, error)

	// RetrieveWorkflowBySubmission retrieves the workflow for submissionID.
	// Returns an error wrapping ErrNotFound if none exists.
	RetrieveWorkflowBySubmission(ctx context.Context, submissionID string) (*Record, error)

	// RetrieveWorkflow retrieves the workflow by its workflow ID.
	// Returns an error wrapping ErrNotFound if none exists.
	RetrieveWorkflow(ctx context.Context, workflowID string) (*Record, error)

	// UpdateWorkflowStatus atomically changes the status of workflowID
	// from expected to status and sets the modified time to the current time.
	// Returns an error wrapping ErrConflict if the stored status is not
	// expected at write time (and nothing is written) or ErrNotFound if
	// the workflow does not exist.
	UpdateWorkflowStatus(ctx context.Context, workflowID string, expected, status workflow.Status) (*Record, error)
}
