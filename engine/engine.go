// Package engine implements the assessment workflow API.
//
// The Engine composes workflow storage, the submission service and the
// registered step evaluators. It is the only place where failures of
// those collaborators are translated into RequestError, NotFoundError
// and InternalError.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/submission"
	"github.com/assessflow/assessflow/workflow"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

// DefaultMaxAttempts is the default number of fetch, recompute and
// compare-and-swap cycles attempted before giving up.
const DefaultMaxAttempts = 3

// Snapshot is the externally visible state of a workflow.
type Snapshot struct {
	SubmissionUUID string          `json:"submission_uuid"`
	UUID           string          `json:"uuid"`
	Status         workflow.Status `json:"status"`
	Created        time.Time       `json:"created"`
	Modified       time.Time       `json:"modified"`

	// per-step reports of the required steps.
	// nil unless the status was recomputed; may be empty when no steps
	// are required.
	StatusDetails workflow.Details `json:"status_details,omitempty"`
}

// MarshalJSON omits status details only when they are nil.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type snapshot Snapshot
	out := struct {
		snapshot
		StatusDetails *workflow.Details `json:"status_details,omitempty"`
	}{snapshot: snapshot(s)}
	if s.StatusDetails != nil {
		out.StatusDetails = &s.StatusDetails
	}
	return json.Marshal(out)
}

func newSnapshot(r *storage.Record, details workflow.Details) *Snapshot {
	return &Snapshot{
		SubmissionUUID: r.SubmissionID,
		UUID:           r.WorkflowID,
		Status:         r.Status,
		Created:        r.Created,
		Modified:       r.Modified,
		StatusDetails:  details,
	}
}

// Engine tracks submissions through their assessment workflows.
type Engine struct {
	evaluatorsMu sync.RWMutex
	evaluators   map[workflow.Step]workflow.Evaluator

	storage     storage.Storage
	submissions submission.Retriever

	logger      log.Logger
	maxAttempts int
}

// Options configure the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxAttempts sets the number of status update attempts made
// when concurrent updates conflict.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithEvaluator registers ev for step.
// Invalid steps or nil evaluators are ignored; use RegisterEvaluator to
// check for errors.
func WithEvaluator(step workflow.Step, ev workflow.Evaluator) Option {
	return func(e *Engine) {
		if step.Valid() && ev != nil {
			e.evaluators[step] = ev
		}
	}
}

// New creates a new workflow engine.
func New(storage storage.Storage, submissions submission.Retriever, opts ...Option) *Engine {
	engine := &Engine{
		evaluators:  make(map[workflow.Step]workflow.Evaluator),
		storage:     storage,
		submissions: submissions,
		logger:      log.NopLogger,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// internalError logs and returns a new InternalError.
// Additional key-value pairs in logs are logged with the error.
func internalError(logger log.Logger, msg string, err error, logs ...interface{}) error {
	logger.Info(append([]interface{}{logkeys.Message, msg, logkeys.Error, err}, logs...)...)
	return &InternalError{Msg: msg, Err: err}
}

// CreateWorkflow begins a new assessment workflow for submissionID.
// The submission must exist in the submission service. The initial
// status is the first registered step in the evaluation order.
// Creating a workflow for a submission that already has one is a RequestError.
func (e *Engine) CreateWorkflow(ctx context.Context, submissionID string) (*Snapshot, error) {
	if submissionID == "" {
		return nil, newRequestError("submission_uuid", "submission_uuid must not be empty")
	}
	logger := ctxlog.Logger(ctx, e.logger).With(logkeys.SubmissionID, submissionID)

	subErr := func(msg string) string {
		return fmt.Sprintf(
			"could not create assessment workflow: retrieving submission %s failed: %s",
			submissionID, msg,
		)
	}
	_, err := e.submissions.RetrieveSubmission(ctx, submissionID)
	if errors.Is(err, submission.ErrNotFound) {
		msg := subErr("submission not found")
		logger.Info(logkeys.Message, msg)
		return nil, newRequestError("submission_uuid", msg)
	} else if errors.Is(err, submission.ErrInvalidRequest) {
		msg := subErr(err.Error())
		logger.Info(logkeys.Message, msg)
		return nil, newRequestError("submission_uuid", msg)
	} else if err != nil {
		return nil, internalError(logger, fmt.Sprintf("retrieving submission %s failed with unknown error", submissionID), err)
	}

	status, ok := workflow.InitialStatus(e.Steps())
	if !ok {
		return nil, internalError(logger, "could not create assessment workflow", errors.New("no step evaluators registered"))
	}

	r, err := e.storage.CreateWorkflow(ctx, submissionID, status)
	if errors.Is(err, storage.ErrConflict) {
		msg := "assessment workflow already exists for submission " + submissionID
		logger.Info(logkeys.Message, msg)
		return nil, newRequestError("submission_uuid", msg)
	} else if err != nil {
		return nil, internalError(logger, "could not create assessment workflow", err)
	}

	logger.Debug(
		logkeys.Message, "created workflow",
		logkeys.WorkflowID, r.WorkflowID,
		logkeys.Status, r.Status,
	)
	return newSnapshot(r, nil), nil
}

// GetWorkflowForSubmission returns the workflow for submissionID.
// The status is always recomputed from req; see UpdateFromAssessments.
func (e *Engine) GetWorkflowForSubmission(ctx context.Context, submissionID string, req workflow.Requirements) (*Snapshot, error) {
	return e.UpdateFromAssessments(ctx, submissionID, req)
}

// validateRequirements checks req names only registered step types.
func validateRequirements(req workflow.Requirements, evs map[workflow.Step]workflow.Evaluator) error {
	if err := req.Validate(); err != nil {
		return newRequestError("requirements", err.Error())
	}
	for s := range req {
		if _, ok := evs[s]; !ok {
			return newRequestError("requirements", "step not configured: "+string(s))
		}
	}
	return nil
}

// evaluate asks the evaluator of every required step for its status.
func evaluate(ctx context.Context, submissionID string, steps []workflow.Step, evs map[workflow.Step]workflow.Evaluator, req workflow.Requirements) (workflow.Details, error) {
	details := make(workflow.Details)
	for _, s := range req.RequiredSteps(steps) {
		if g, isGrader := evs[s].(workflow.Grader); isGrader {
			ok, graded, detail, err := g.EvaluateGraded(ctx, submissionID, req[s])
			if err != nil {
				return nil, fmt.Errorf("evaluating %s: %w", s, err)
			}
			details[s] = &workflow.StepStatus{Complete: ok, Graded: &graded, Detail: detail}
			continue
		}
		ok, detail, err := evs[s].Evaluate(ctx, submissionID, req[s])
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", s, err)
		}
		details[s] = &workflow.StepStatus{Complete: ok, Detail: detail}
	}
	return details, nil
}

// UpdateFromAssessments recomputes the status of the workflow for
// submissionID from the required steps in req and their evaluators and
// persists any change.
//
// The fetch, recompute and compare-and-swap cycle is retried when a
// concurrent update changed the status first. The returned snapshot
// includes the status details of every required step.
func (e *Engine) UpdateFromAssessments(ctx context.Context, submissionID string, req workflow.Requirements) (*Snapshot, error) {
	if submissionID == "" {
		return nil, newRequestError("submission_uuid", "submission_uuid must not be empty")
	}
	steps, evs := e.stepEvaluators()
	if err := validateRequirements(req, evs); err != nil {
		return nil, err
	}
	logger := ctxlog.Logger(ctx, e.logger).With(logkeys.SubmissionID, submissionID)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		r, err := e.storage.RetrieveWorkflowBySubmission(ctx, submissionID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{SubmissionID: submissionID}
		} else if err != nil {
			return nil, internalError(
				logger.With(logkeys.Attempt, attempt),
				"could not get assessment workflow",
				err,
				logkeys.Requirements, req.String(),
			)
		}

		details, err := evaluate(ctx, submissionID, steps, evs, req)
		if err != nil {
			return nil, internalError(
				logger.With(logkeys.WorkflowID, r.WorkflowID, logkeys.Attempt, attempt),
				"could not evaluate assessment steps",
				err,
				logkeys.Requirements, req.String(),
			)
		}

		status := workflow.Recompute(r.Status, steps, req, details)
		if status == r.Status {
			return newSnapshot(r, details), nil
		}

		updated, err := e.storage.UpdateWorkflowStatus(ctx, r.WorkflowID, r.Status, status)
		if errors.Is(err, storage.ErrConflict) {
			logger.Debug(
				logkeys.Message, "status update conflict",
				logkeys.WorkflowID, r.WorkflowID,
				logkeys.Attempt, attempt,
				logkeys.Error, err,
			)
			continue
		} else if err != nil {
			return nil, internalError(
				logger.With(logkeys.WorkflowID, r.WorkflowID, logkeys.Attempt, attempt),
				"could not update assessment workflow",
				err,
				logkeys.Requirements, req.String(),
			)
		}

		logger.Debug(
			logkeys.Message, "updated workflow status",
			logkeys.WorkflowID, updated.WorkflowID,
			logkeys.PreviousStatus, r.Status,
			logkeys.Status, updated.Status,
		)
		return newSnapshot(updated, details), nil
	}

	return nil, internalError(
		logger.With(logkeys.Attempt, e.maxAttempts),
		"could not update assessment workflow",
		ErrRetriesExhausted,
		logkeys.Requirements, req.String(),
	)
}

// CancelWorkflow cancels the workflow for submissionID.
// Cancelling a cancelled workflow returns it unchanged; cancelling a
// done workflow is a RequestError.
func (e *Engine) CancelWorkflow(ctx context.Context, submissionID string) (*Snapshot, error) {
	if submissionID == "" {
		return nil, newRequestError("submission_uuid", "submission_uuid must not be empty")
	}
	logger := ctxlog.Logger(ctx, e.logger).With(logkeys.SubmissionID, submissionID)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		r, err := e.storage.RetrieveWorkflowBySubmission(ctx, submissionID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{SubmissionID: submissionID}
		} else if err != nil {
			return nil, internalError(logger, "could not get assessment workflow", err)
		}

		switch r.Status {
		case workflow.StatusCancelled:
			return newSnapshot(r, nil), nil
		case workflow.StatusDone:
			return nil, newRequestError("status", "can not cancel a done assessment workflow")
		}

		updated, err := e.storage.UpdateWorkflowStatus(ctx, r.WorkflowID, r.Status, workflow.StatusCancelled)
		if errors.Is(err, storage.ErrConflict) {
			logger.Debug(
				logkeys.Message, "cancel conflict",
				logkeys.WorkflowID, r.WorkflowID,
				logkeys.Attempt, attempt,
			)
			continue
		} else if err != nil {
			return nil, internalError(logger.With(logkeys.WorkflowID, r.WorkflowID), "could not cancel assessment workflow", err)
		}

		logger.Debug(
			logkeys.Message, "cancelled workflow",
			logkeys.WorkflowID, updated.WorkflowID,
			logkeys.PreviousStatus, r.Status,
		)
		return newSnapshot(updated, nil), nil
	}

	return nil, internalError(
		logger.With(logkeys.Attempt, e.maxAttempts),
		"could not cancel assessment workflow",
		ErrRetriesExhausted,
	)
}
