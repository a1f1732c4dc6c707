package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Params are the step-specific satisfaction criteria for one step.
// They are opaque to the workflow and handed as-is to the step's Evaluator.
// For example a peer step might use {"must_grade": 5, "must_be_graded_by": 3}.
type Params map[string]interface{}

// Requirements configure which steps are required for a submission and
// their criteria. A step is required if and only if it is a key.
//
// Requirements are supplied by the caller on every status query and are
// never persisted with the workflow.
type Requirements map[Step]Params

// Required returns true if s is required.
func (r Requirements) Required(s Step) bool {
	_, ok := r[s]
	return ok
}

// UnknownStepsError reports requirements naming unknown step types.
type UnknownStepsError struct {
	Steps []string
}

func (e *UnknownStepsError) Error() string {
	return "unknown step types: " + strings.Join(e.Steps, ", ")
}

// Validate checks r for unknown step types.
func (r Requirements) Validate() error {
	var unknown []string
	for s := range r {
		if !s.Valid() {
			unknown = append(unknown, string(s))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &UnknownStepsError{Steps: unknown}
	}
	return nil
}

// RequiredSteps returns the steps of steps which are required, preserving order.
func (r Requirements) RequiredSteps(steps []Step) (required []Step) {
	for _, s := range steps {
		if r.Required(s) {
			required = append(required, s)
		}
	}
	return
}

// String is a compact, stable representation suitable for logging.
func (r Requirements) String() string {
	steps := make([]string, 0, len(r))
	for s := range r {
		steps = append(steps, string(s))
	}
	sort.Strings(steps)
	return fmt.Sprintf("[%s]", strings.Join(steps, " "))
}
