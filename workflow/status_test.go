package workflow

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, test := range []struct {
		in    string
		valid bool
	}{
		{"peer", true},
		{"self", true},
		{"training", true},
		{"ai", true},
		{"waiting", true},
		{"done", true},
		{"cancelled", true},
		{"", false},
		{"Peer", false},
		{"grading", false},
	} {
		t.Run("status_"+test.in, func(t *testing.T) {
			st, err := ParseStatus(test.in)
			if test.valid {
				if err != nil {
					t.Fatal(err)
				}
				if have, want := st, Status(test.in); have != want {
					t.Errorf("have: %v, want: %v", have, want)
				}
				return
			}
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("expected ErrInvalidStatus, have: %v", err)
			}
		})
	}
}

func TestStatusBefore(t *testing.T) {
	pipeline := []Status{StatusTraining, StatusPeer, StatusSelf, StatusAI, StatusWaiting, StatusDone}
	for i := range pipeline {
		for j := range pipeline {
			if have, want := pipeline[i].Before(pipeline[j]), i < j; have != want {
				t.Errorf("%s before %s: have: %v, want: %v", pipeline[i], pipeline[j], have, want)
			}
		}
	}
	if StatusCancelled.Before(StatusPeer) || StatusPeer.Before(StatusCancelled) {
		t.Error("cancelled should not be ordered")
	}
}

func TestTerminal(t *testing.T) {
	if !StatusDone.Terminal() || !StatusCancelled.Terminal() {
		t.Error("expected done and cancelled to be terminal")
	}
	if StatusWaiting.Terminal() || StatusPeer.Terminal() {
		t.Error("expected waiting and peer to be non-terminal")
	}
}

func TestRequirementsValidate(t *testing.T) {
	req := Requirements{StepPeer: nil, "bogus": nil, "alsobogus": Params{}}
	err := req.Validate()
	var unk *UnknownStepsError
	if !errors.As(err, &unk) {
		t.Fatalf("expected UnknownStepsError, have: %v", err)
	}
	if have, want := len(unk.Steps), 2; have != want {
		t.Fatalf("have: %v, want: %v", have, want)
	}
	if have, want := unk.Steps[0], "alsobogus"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	if err = (Requirements{StepPeer: Params{"must_grade": 5}, StepSelf: nil}).Validate(); err != nil {
		t.Error(err)
	}
}

func TestRequirementsString(t *testing.T) {
	req := Requirements{StepSelf: nil, StepPeer: Params{"must_grade": 5}}
	if have, want := req.String(), "[peer self]"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := (Requirements{}).String(), "[]"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}
