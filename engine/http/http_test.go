package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/assessflow/assessflow/engine"
	"github.com/assessflow/assessflow/engine/storage/inmem"
	"github.com/assessflow/assessflow/requirements"
	"github.com/assessflow/assessflow/submission"
	"github.com/assessflow/assessflow/workflow"
	wftest "github.com/assessflow/assessflow/workflow/test"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
)

func newTestServer(t *testing.T) (*httptest.Server, *wftest.Evaluator) {
	t.Helper()
	peer := wftest.NewEvaluator()
	e := engine.New(
		inmem.New(),
		submission.Static{"S1": {UUID: "S1"}, "S2": {UUID: "S2"}},
		engine.WithEvaluator(workflow.StepPeer, peer),
		engine.WithEvaluator(workflow.StepSelf, wftest.NewEvaluator()),
	)
	profiles := requirements.Profiles{
		"default": {workflow.StepPeer: {"must_grade": 5}},
		"both":    {workflow.StepPeer: nil, workflow.StepSelf: nil},
	}
	mux := flow.New()
	HandleAPIv1("/v1", mux, log.NopLogger, e, profiles)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, peer
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	m := make(map[string]interface{})
	if err = json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	return resp, m
}

func TestAPIv1(t *testing.T) {
	srv, peer := newTestServer(t)
	base := srv.URL + "/v1/workflow/"

	resp, m := do(t, "POST", base+"S1", "")
	if have, want := resp.StatusCode, http.StatusCreated; have != want {
		t.Fatalf("have: %v, want: %v: %v", have, want, m)
	}
	if have, want := m["status"], "peer"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if _, ok := m["status_details"]; ok {
		t.Error("expected no status details on create")
	}
	if have, want := resp.Header.Get("Content-Type"), "application/json"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	resp, m = do(t, "POST", base+"S1", "")
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("duplicate create: have: %v, want: %v", have, want)
	}
	if _, ok := m["error"]; !ok {
		t.Error("expected error in response")
	}

	resp, _ = do(t, "POST", base+"bad-uuid", "")
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("missing submission: have: %v, want: %v", have, want)
	}

	resp, m = do(t, "GET", base+"S1", "")
	if have, want := resp.StatusCode, http.StatusOK; have != want {
		t.Fatalf("have: %v, want: %v: %v", have, want, m)
	}
	if have, want := m["status"], "peer"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	details, ok := m["status_details"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected status details: %v", m)
	}
	if _, ok = details["peer"]; !ok {
		t.Error("expected peer details")
	}

	resp, _ = do(t, "GET", base+"S1?profile=missing", "")
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("unknown profile: have: %v, want: %v", have, want)
	}

	resp, _ = do(t, "GET", base+"unknown-id", "")
	if have, want := resp.StatusCode, http.StatusNotFound; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	peer.SetSatisfied("S1", true)
	resp, m = do(t, "GET", base+"S1?profile=both", "")
	if have, want := resp.StatusCode, http.StatusOK; have != want {
		t.Fatalf("have: %v, want: %v: %v", have, want, m)
	}
	if have, want := m["status"], "self"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	resp, m = do(t, "POST", base+"S1/update", `{"peer":{"must_grade":5}}`)
	if have, want := resp.StatusCode, http.StatusOK; have != want {
		t.Fatalf("have: %v, want: %v: %v", have, want, m)
	}
	if have, want := m["status"], "done"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	resp, _ = do(t, "POST", base+"S1/update", `{"grading":{}}`)
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("unknown step: have: %v, want: %v", have, want)
	}

	resp, _ = do(t, "POST", base+"S1/update", `[`)
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("bad body: have: %v, want: %v", have, want)
	}

	resp, _ = do(t, "POST", base+"S1/cancel", "")
	if have, want := resp.StatusCode, http.StatusBadRequest; have != want {
		t.Errorf("cancel done: have: %v, want: %v", have, want)
	}

	do(t, "POST", base+"S2", "")
	resp, m = do(t, "POST", base+"S2/cancel", "")
	if have, want := resp.StatusCode, http.StatusOK; have != want {
		t.Fatalf("have: %v, want: %v: %v", have, want, m)
	}
	if have, want := m["status"], "cancelled"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}

func TestNilEngine(t *testing.T) {
	mux := flow.New()
	mux.Handle("/workflow/:submission", CreateWorkflowHandler(nil, log.NopLogger), "POST")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/workflow/S1", nil))
	if have, want := rec.Code, http.StatusInternalServerError; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}

func TestStatusCode(t *testing.T) {
	for _, test := range []struct {
		err  error
		want int
	}{
		{&engine.RequestError{Msg: "bad"}, http.StatusBadRequest},
		{&engine.NotFoundError{SubmissionID: "S1"}, http.StatusNotFound},
		{&engine.InternalError{Msg: "db"}, http.StatusInternalServerError},
	} {
		if have, want := statusCode(test.err), test.want; have != want {
			t.Errorf("%v: have: %v, want: %v", test.err, have, want)
		}
	}
}
