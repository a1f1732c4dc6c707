package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/assessflow/assessflow/engine"
	"github.com/assessflow/assessflow/engine/storage/inmem"
	"github.com/assessflow/assessflow/submission"
	"github.com/assessflow/assessflow/workflow"
)

func TestEvaluator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		req := new(Request)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Step != workflow.StepPeer {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.SubmissionUUID {
		case "S1":
			mustGrade, _ := req.Requirements["must_grade"].(float64)
			json.NewEncoder(w).Encode(&Response{
				Satisfied: mustGrade <= 2,
				Graded:    func() *bool { b := false; return &b }(),
				Detail:    workflow.Detail{"graded_count": 2},
			})
		case "S2":
			w.Write([]byte(`{"satisfied":true}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	e := NewGrading(workflow.StepPeer, srv.URL, WithClient(srv.Client()))

	ok, detail, err := e.Evaluate(ctx, "S1", workflow.Params{"must_grade": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected satisfied")
	}
	if have, want := detail["graded_count"], float64(2); have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	ok, _, err = e.Evaluate(ctx, "S1", workflow.Params{"must_grade": 5})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected not satisfied")
	}

	ok, graded, detail, err := e.EvaluateGraded(ctx, "S1", workflow.Params{"must_grade": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || graded {
		t.Errorf("have: satisfied=%v graded=%v, want: satisfied=true graded=false", ok, graded)
	}
	if have, want := detail["graded_count"], float64(2); have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	_, graded, _, err = e.EvaluateGraded(ctx, "S2", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !graded {
		t.Error("expected missing graded value to be graded")
	}

	if _, _, err = e.Evaluate(ctx, "S3", nil); err == nil {
		t.Error("expected error for server failure")
	}

	// cancelled contexts abort the request
	cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	<-cctx.Done()
	if _, _, err = e.Evaluate(cctx, "S1", nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

// TestGradingSingleRequest checks that a recompute observes satisfaction
// and grading from one response of a service whose answers change
// between requests.
func TestGradingSingleRequest(t *testing.T) {
	var (
		mu       sync.Mutex
		requests int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()
		if n%2 == 1 {
			w.Write([]byte(`{"satisfied":true,"graded":false}`))
		} else {
			w.Write([]byte(`{"satisfied":false,"graded":true}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	e := engine.New(
		inmem.New(),
		submission.Static{"S1": {UUID: "S1"}},
		engine.WithEvaluator(workflow.StepPeer, NewGrading(workflow.StepPeer, srv.URL, WithClient(srv.Client()))),
	)
	if _, err := e.CreateWorkflow(ctx, "S1"); err != nil {
		t.Fatal(err)
	}

	snap, err := e.UpdateFromAssessments(ctx, "S1", workflow.Requirements{workflow.StepPeer: nil})
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	if have, want := requests, 1; have != want {
		t.Errorf("requests: have: %v, want: %v", have, want)
	}
	mu.Unlock()
	if have, want := snap.Status, workflow.StatusWaiting; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	st := snap.StatusDetails[workflow.StepPeer]
	if st == nil || !st.Complete || st.Graded == nil || *st.Graded {
		t.Errorf("expected complete and not graded: %+v", st)
	}
}
