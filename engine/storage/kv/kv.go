// Package kv implements a workflow engine storage backend using a key-value interface.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/utils/kv"
	"github.com/assessflow/assessflow/utils/uuid"
	"github.com/assessflow/assessflow/workflow"
)

// KV is a workflow engine storage backend using a key-value interface.
// Records are stored as JSON keyed by workflow ID. A second bucket
// indexes workflow IDs by submission ID.
//
// Compare-and-swap is provided by an in-process lock so a KV must be the
// only writer to its buckets.
type KV struct {
	mu          sync.RWMutex
	recordStore kv.Bucket
	subIdxStore kv.Bucket
	ider        uuid.IDer
}

// New creates a new key-value workflow engine storage backend.
func New(recordStore kv.Bucket, subIdxStore kv.Bucket, ider uuid.IDer) *KV {
	return &KV{
		recordStore: recordStore,
		subIdxStore: subIdxStore,
		ider:        ider,
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *KV) getRecord(ctx context.Context, workflowID string) (*storage.Record, error) {
	raw, err := s.recordStore.Get(ctx, workflowID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: workflow id %s", storage.ErrNotFound, workflowID)
	} else if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", workflowID, err)
	}
	r := new(storage.Record)
	if err = json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", workflowID, err)
	}
	return r, nil
}

func marshalRecord(r *storage.Record) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", r.WorkflowID, err)
	}
	return raw, nil
}

// CreateWorkflow implements the storage interface method.
func (s *KV) CreateWorkflow(ctx context.Context, submissionID string, status workflow.Status) (*storage.Record, error) {
	if submissionID == "" {
		return nil, storage.ErrMissingSubmissionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if found, err := s.subIdxStore.Has(ctx, submissionID); err != nil {
		return nil, fmt.Errorf("checking submission index: %w", err)
	} else if found {
		return nil, fmt.Errorf("%w: workflow exists for submission %s", storage.ErrConflict, submissionID)
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
	raw, err := marshalRecord(r)
	if err != nil {
		return nil, err
	}

	// write the record before the index so a failure between the two
	// leaves an unreachable record rather than a dangling index.
	if err = s.recordStore.Set(ctx, r.WorkflowID, raw); err != nil {
		return nil, fmt.Errorf("setting record: %w", err)
	}
	if err = s.subIdxStore.Set(ctx, submissionID, []byte(r.WorkflowID)); err != nil {
		return nil, fmt.Errorf("setting submission index: %w", err)
	}
	return r, nil
}

// RetrieveWorkflowBySubmission implements the storage interface method.
func (s *KV) RetrieveWorkflowBySubmission(ctx context.Context, submissionID string) (*storage.Record, error) {
	if submissionID == "" {
		return nil, storage.ErrMissingSubmissionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	workflowID, err := s.subIdxStore.Get(ctx, submissionID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: submission %s", storage.ErrNotFound, submissionID)
	} else if err != nil {
		return nil, fmt.Errorf("getting submission index: %w", err)
	}
	return s.getRecord(ctx, string(workflowID))
}

// RetrieveWorkflow implements the storage interface method.
func (s *KV) RetrieveWorkflow(ctx context.Context, workflowID string) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRecord(ctx, workflowID)
}

// UpdateWorkflowStatus implements the storage interface method.
func (s *KV) UpdateWorkflowStatus(ctx context.Context, workflowID string, expected, status workflow.Status) (*storage.Record, error) {
	if workflowID == "" {
		return nil, storage.ErrMissingWorkflowID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := s.getRecord(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if r.Status != expected {
		return nil, storage.NewErrConflictStatus(workflowID, expected, r.Status)
	}
	r.Status = status
	r.Modified = now()
	raw, err := marshalRecord(r)
	if err != nil {
		return nil, err
	}
	if err = s.recordStore.Set(ctx, workflowID, raw); err != nil {
		return nil, fmt.Errorf("setting record: %w", err)
	}
	return r, nil
}
