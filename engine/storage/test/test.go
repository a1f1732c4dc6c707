// Package test is a conformance suite for workflow engine storage backends.
package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/utils/uuid"
	"github.com/assessflow/assessflow/workflow"
)

// TestEngineStorage runs the storage conformance tests against newStorage.
// Submission IDs are randomized per run so backends that persist between
// runs (or share state between newStorage calls) can be tested.
func TestEngineStorage(t *testing.T, newStorage func() storage.Storage) {
	s := newStorage()
	prefix := uuid.NewUUID().ID() + "-"

	t.Run("testCreateRetrieve", func(t *testing.T) {
		testCreateRetrieve(t, s, prefix)
	})

	t.Run("testNotFound", func(t *testing.T) {
		testNotFound(t, s, prefix)
	})

	t.Run("testUpdateStatus", func(t *testing.T) {
		testUpdateStatus(t, s, prefix)
	})

	t.Run("testConcurrentUpdateStatus", func(t *testing.T) {
		testConcurrentUpdateStatus(t, newStorage(), prefix)
	})
}

func testCreateRetrieve(t *testing.T, s storage.Storage, prefix string) {
	ctx := context.Background()
	subID := prefix + "S1"

	r, err := s.CreateWorkflow(ctx, subID, workflow.StatusPeer)
	if err != nil {
		t.Fatal(err)
	}
	if err = r.Validate(); err != nil {
		t.Fatal(err)
	}
	if have, want := r.SubmissionID, subID; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := r.Status, workflow.StatusPeer; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if r.Created.IsZero() || !r.Created.Equal(r.Modified) {
		t.Errorf("expected equal non-zero created and modified: %v, %v", r.Created, r.Modified)
	}

	_, err = s.CreateWorkflow(ctx, subID, workflow.StatusPeer)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate create, have: %v", err)
	}

	r2, err := s.RetrieveWorkflowBySubmission(ctx, subID)
	if err != nil {
		t.Fatal(err)
	}
	assertRecordEqual(t, r2, r)

	r3, err := s.RetrieveWorkflow(ctx, r.WorkflowID)
	if err != nil {
		t.Fatal(err)
	}
	assertRecordEqual(t, r3, r)

	other, err := s.CreateWorkflow(ctx, prefix+"S2", workflow.StatusTraining)
	if err != nil {
		t.Fatal(err)
	}
	if other.WorkflowID == r.WorkflowID {
		t.Error("expected unique workflow IDs")
	}

	if _, err = s.CreateWorkflow(ctx, "", workflow.StatusPeer); err == nil {
		t.Error("expected error creating with empty submission id")
	}
}

func testNotFound(t *testing.T, s storage.Storage, prefix string) {
	ctx := context.Background()

	_, err := s.RetrieveWorkflowBySubmission(ctx, prefix+"unknown-id")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, have: %v", err)
	}

	_, err = s.RetrieveWorkflow(ctx, prefix+"unknown-wf")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, have: %v", err)
	}

	_, err = s.UpdateWorkflowStatus(ctx, prefix+"unknown-wf", workflow.StatusPeer, workflow.StatusDone)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, have: %v", err)
	}
}

func testUpdateStatus(t *testing.T, s storage.Storage, prefix string) {
	ctx := context.Background()

	r, err := s.CreateWorkflow(ctx, prefix+"S3", workflow.StatusPeer)
	if err != nil {
		t.Fatal(err)
	}

	u, err := s.UpdateWorkflowStatus(ctx, r.WorkflowID, workflow.StatusPeer, workflow.StatusSelf)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := u.Status, workflow.StatusSelf; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if u.Modified.Before(r.Modified) {
		t.Errorf("modified went backwards: %v before %v", u.Modified, r.Modified)
	}
	if !u.Created.Equal(r.Created) {
		t.Errorf("created changed: have: %v, want: %v", u.Created, r.Created)
	}
	if have, want := u.WorkflowID, r.WorkflowID; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	// stale expected status must not write
	_, err = s.UpdateWorkflowStatus(ctx, r.WorkflowID, workflow.StatusPeer, workflow.StatusDone)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, have: %v", err)
	}

	r2, err := s.RetrieveWorkflowBySubmission(ctx, prefix+"S3")
	if err != nil {
		t.Fatal(err)
	}
	assertRecordEqual(t, r2, u)
}

func testConcurrentUpdateStatus(t *testing.T, s storage.Storage, prefix string) {
	ctx := context.Background()

	r, err := s.CreateWorkflow(ctx, prefix+"S4", workflow.StatusPeer)
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateWorkflowStatus(ctx, r.WorkflowID, workflow.StatusPeer, workflow.StatusDone)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, storage.ErrConflict) {
				conflicts++
			} else {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if have, want := successes, 1; have != want {
		t.Errorf("successful CAS writes: have: %v, want: %v", have, want)
	}
	if have, want := conflicts, n-1; have != want {
		t.Errorf("conflicting CAS writes: have: %v, want: %v", have, want)
	}
}

func assertRecordEqual(t *testing.T, have, want *storage.Record) {
	t.Helper()
	if have.WorkflowID != want.WorkflowID ||
		have.SubmissionID != want.SubmissionID ||
		have.Status != want.Status ||
		!have.Created.Equal(want.Created) ||
		!have.Modified.Equal(want.Modified) {
		t.Errorf("records differ: have: %+v, want: %+v", have, want)
	}
}
