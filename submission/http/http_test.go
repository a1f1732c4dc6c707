package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assessflow/assessflow/submission"
)

func TestRetrieveSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pass, ok := r.BasicAuth(); !ok || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/submissions/S1":
			w.Write([]byte(`{"uuid":"S1","attempt_number":2}`))
		case "/submissions/bad-uuid":
			w.WriteHeader(http.StatusNotFound)
		case "/submissions/malformed":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"malformed id"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/submissions/", WithAPIKey("secret"), WithClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	sub, err := c.RetrieveSubmission(ctx, "S1")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := sub.UUID, "S1"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := sub.Attempt, 2; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	_, err = c.RetrieveSubmission(ctx, "bad-uuid")
	if !errors.Is(err, submission.ErrNotFound) {
		t.Errorf("expected ErrNotFound, have: %v", err)
	}

	_, err = c.RetrieveSubmission(ctx, "malformed")
	if !errors.Is(err, submission.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, have: %v", err)
	}

	_, err = c.RetrieveSubmission(ctx, "explode")
	if err == nil || errors.Is(err, submission.ErrNotFound) || errors.Is(err, submission.ErrInvalidRequest) {
		t.Errorf("expected internal error, have: %v", err)
	}
}
