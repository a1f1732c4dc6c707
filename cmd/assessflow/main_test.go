package main

import "testing"

func TestNewTraceID(t *testing.T) {
	a, b := newTraceID(nil), newTraceID(nil)
	if have, want := len(a), 16; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if a == b {
		t.Error("expected distinct trace IDs")
	}
}
