package main

import (
	"testing"

	"github.com/assessflow/assessflow/engine"
	"github.com/assessflow/assessflow/engine/storage/inmem"
	"github.com/assessflow/assessflow/submission"
	"github.com/assessflow/assessflow/workflow"

	"github.com/micromdm/nanolib/log"
)

func TestEvaluatorURLs(t *testing.T) {
	var urls evaluatorURLs
	for _, v := range []string{"self=http://localhost/self", "peer=http://localhost/peer"} {
		if err := urls.Set(v); err != nil {
			t.Fatal(err)
		}
	}
	if have, want := urls.String(), "peer=http://localhost/peer,self=http://localhost/self"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	for _, v := range []string{"peer", "peer=", "grading=http://localhost"} {
		if err := urls.Set(v); err == nil {
			t.Errorf("expected error for %q", v)
		}
	}

	e := engine.New(inmem.New(), submission.Static{})
	if err := registerEvaluators(log.NopLogger, e, urls, "key"); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Evaluator(workflow.StepPeer).(workflow.Grader); !ok {
		t.Error("expected peer evaluator to be a grader")
	}
	if _, ok := e.Evaluator(workflow.StepSelf).(workflow.Grader); ok {
		t.Error("expected self evaluator to not be a grader")
	}
	if have, want := len(e.Steps()), 2; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}
