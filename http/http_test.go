package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDumpHandler(t *testing.T) {
	var seen []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	out := new(bytes.Buffer)
	h := DumpHandler(next, out)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"topic":"assessment.created"}`+"\n")))

	if have, want := rec.Code, http.StatusNoContent; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := out.String(), `{"topic":"assessment.created"}`+"\n"; have != want {
		t.Errorf("have: %q, want: %q", have, want)
	}
	if have, want := string(seen), `{"topic":"assessment.created"}`+"\n"; have != want {
		t.Errorf("next handler body: have: %q, want: %q", have, want)
	}
}
