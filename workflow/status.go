package workflow

import (
	"errors"
	"fmt"
)

// Step is an assessment step type.
type Step string

const (
	StepTraining Step = "training"
	StepPeer     Step = "peer"
	StepSelf     Step = "self"
	StepAI       Step = "ai"
)

// Order is the fixed evaluation order of all step types.
// Steps are evaluated as a pipeline in this order.
var Order = []Step{StepTraining, StepPeer, StepSelf, StepAI}

// Valid returns true if s is a known step type.
func (s Step) Valid() bool {
	return s.index() >= 0
}

func (s Step) index() int {
	for i, o := range Order {
		if o == s {
			return i
		}
	}
	return -1
}

// Status is the overall status of a workflow.
// It is either a step type or one of the meta-statuses.
type Status string

const (
	StatusTraining = Status(StepTraining)
	StatusPeer     = Status(StepPeer)
	StatusSelf     = Status(StepSelf)
	StatusAI       = Status(StepAI)

	// all required steps are satisfied but at least one step is still
	// waiting on assessments of this submission by others.
	StatusWaiting Status = "waiting"

	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus converts s into a Status checking it for validity.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid returns true if s is a step type or a meta-status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusDone, StatusCancelled:
		return true
	}
	return Step(s).Valid()
}

// Terminal returns true if no recompute may change s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// position orders statuses along the pipeline: steps in Order, then
// waiting, then done. Cancelled and invalid statuses return -1.
func (s Status) position() int {
	switch s {
	case StatusWaiting:
		return len(Order)
	case StatusDone:
		return len(Order) + 1
	}
	return Step(s).index()
}

// Before reports whether s comes strictly before o in the pipeline.
// Cancelled is not part of the pipeline and is never before or after anything.
func (s Status) Before(o Status) bool {
	sp, op := s.position(), o.position()
	if sp < 0 || op < 0 {
		return false
	}
	return sp < op
}
