package workflow

import "context"

// Detail is an evaluator-supplied informational payload (e.g. counts).
type Detail map[string]interface{}

// Evaluator answers whether a step is complete for a submission.
// One Evaluator exists per step type.
type Evaluator interface {
	// Evaluate reports whether the step is satisfied for submissionID
	// under params. Errors are treated as internal failures.
	Evaluate(ctx context.Context, submissionID string, params Params) (satisfied bool, detail Detail, err error)
}

// Grader is optionally implemented by Evaluators of steps where the
// submission itself is assessed by others. Once every required step is
// satisfied a workflow waits until every Grader reports graded.
//
// EvaluateGraded reports satisfaction and grading from a single
// observation and is called instead of Evaluate.
type Grader interface {
	Evaluator
	EvaluateGraded(ctx context.Context, submissionID string, params Params) (satisfied, graded bool, detail Detail, err error)
}

// EvaluatorFunc adapts a function to an Evaluator.
type EvaluatorFunc func(ctx context.Context, submissionID string, params Params) (bool, Detail, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, submissionID string, params Params) (bool, Detail, error) {
	return f(ctx, submissionID, params)
}

// StepStatus is the satisfaction report of a single required step.
type StepStatus struct {
	Complete bool `json:"complete"`

	// nil if the step's evaluator is not a Grader.
	Graded *bool `json:"graded,omitempty"`

	Detail Detail `json:"detail,omitempty"`
}

// Details are the per-step status reports of required steps.
type Details map[Step]*StepStatus

// Satisfied returns true if step s is reported complete.
func (d Details) Satisfied(s Step) bool {
	st, ok := d[s]
	return ok && st != nil && st.Complete
}

// Graded returns true if step s is graded or has no grading concept.
func (d Details) Graded(s Step) bool {
	st, ok := d[s]
	if !ok || st == nil {
		return false
	}
	return st.Graded == nil || *st.Graded
}
