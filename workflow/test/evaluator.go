// Package test provides Evaluator test doubles.
package test

import (
	"context"
	"sync"

	"github.com/assessflow/assessflow/workflow"
)

// Evaluator is a settable Evaluator and Grader safe for concurrent use.
type Evaluator struct {
	mu        sync.RWMutex
	satisfied map[string]bool
	graded    map[string]bool
	detail    workflow.Detail
	err       error
	calls     int
}

// NewEvaluator creates a new settable evaluator reporting nothing satisfied.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		satisfied: make(map[string]bool),
		graded:    make(map[string]bool),
	}
}

// SetSatisfied sets the satisfied result for submissionID.
func (e *Evaluator) SetSatisfied(submissionID string, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.satisfied[submissionID] = v
}

// SetDetail sets the detail returned for every evaluation.
func (e *Evaluator) SetDetail(d workflow.Detail) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detail = d
}

// SetError makes every evaluation fail with err.
func (e *Evaluator) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns the number of Evaluate calls.
func (e *Evaluator) Calls() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calls
}

// Evaluate implements workflow.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, submissionID string, _ workflow.Params) (bool, workflow.Detail, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	if e.err != nil {
		return false, nil, e.err
	}
	return e.satisfied[submissionID], e.detail, nil
}

// GradingEvaluator is an Evaluator that also implements workflow.Grader.
type GradingEvaluator struct {
	*Evaluator
}

// NewGradingEvaluator creates a new settable evaluator that is also a Grader.
func NewGradingEvaluator() *GradingEvaluator {
	return &GradingEvaluator{Evaluator: NewEvaluator()}
}

// SetGraded sets the graded result for submissionID.
func (e *GradingEvaluator) SetGraded(submissionID string, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graded[submissionID] = v
}

// EvaluateGraded implements workflow.Grader.
func (e *GradingEvaluator) EvaluateGraded(ctx context.Context, submissionID string, params workflow.Params) (bool, bool, workflow.Detail, error) {
	ok, detail, err := e.Evaluate(ctx, submissionID, params)
	if err != nil {
		return false, false, nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ok, e.graded[submissionID], detail, nil
}
