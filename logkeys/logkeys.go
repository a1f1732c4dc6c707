// Package logkeys defines some static logging keys for consistent structured logging output.
// Mostly exists as a mental aid when drafting log messages.
package logkeys

const (
	Message = "msg"
	Error   = "err"

	// the external submission identifier a workflow tracks.
	SubmissionID = "submission_id"

	// the store-assigned workflow identifier.
	WorkflowID = "workflow_id"

	Status         = "status"
	PreviousStatus = "status_prev"
	StepName       = "step"

	// compact list of required steps.
	Requirements = "requirements"

	// CAS retry attempt number (1-based).
	Attempt = "attempt"

	// a context-dependent numerical count/length of something
	GenericCount = "count"
)
