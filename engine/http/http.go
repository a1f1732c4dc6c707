// Package http contains HTTP handlers that work with the assessflow engine.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/assessflow/assessflow/engine"
	"github.com/assessflow/assessflow/http/api"
	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/workflow"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

var (
	ErrNoSubmission   = errors.New("missing submission parameter")
	ErrNoEngine       = errors.New("missing workflow engine")
	ErrUnknownProfile = errors.New("unknown requirements profile")
)

// WorkflowCreator creates workflows.
type WorkflowCreator interface {
	CreateWorkflow(ctx context.Context, submissionID string) (*engine.Snapshot, error)
}

// WorkflowUpdater recomputes workflows from requirements.
type WorkflowUpdater interface {
	UpdateFromAssessments(ctx context.Context, submissionID string, req workflow.Requirements) (*engine.Snapshot, error)
}

// WorkflowCanceller cancels workflows.
type WorkflowCanceller interface {
	CancelWorkflow(ctx context.Context, submissionID string) (*engine.Snapshot, error)
}

// RequirementsProfiles looks up named requirements.
type RequirementsProfiles interface {
	Requirements(name string) (workflow.Requirements, bool)
}

// statusCode maps engine error kinds to HTTP status codes.
func statusCode(err error) int {
	switch {
	case engine.IsRequestError(err):
		return http.StatusBadRequest
	case engine.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// submissionParam extracts the submission route parameter.
// On failure a JSON error is written and an empty string returned.
func submissionParam(w http.ResponseWriter, r *http.Request, logger log.Logger) string {
	submissionID := flow.Param(r.Context(), "submission")
	if submissionID == "" {
		logger.Info(logkeys.Message, "parameters", logkeys.Error, ErrNoSubmission)
		api.JSONError(w, ErrNoSubmission, http.StatusBadRequest)
	}
	return submissionID
}

func writeSnapshot(w http.ResponseWriter, logger log.Logger, snap *engine.Snapshot, statusCode int) {
	if err := api.JSONResponse(w, snap, statusCode); err != nil {
		logger.Info(logkeys.Message, "encoding json response", logkeys.Error, err)
	}
}

// CreateWorkflowHandler creates a HandlerFunc that creates a workflow.
func CreateWorkflowHandler(creator WorkflowCreator, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		submissionID := submissionParam(w, r, logger)
		if submissionID == "" {
			return
		}
		logger = logger.With(logkeys.SubmissionID, submissionID)
		if creator == nil {
			logger.Info(logkeys.Message, "creating workflow", logkeys.Error, ErrNoEngine)
			api.JSONError(w, ErrNoEngine, 0)
			return
		}

		snap, err := creator.CreateWorkflow(r.Context(), submissionID)
		if err != nil {
			logger.Info(logkeys.Message, "creating workflow", logkeys.Error, err)
			api.JSONError(w, err, statusCode(err))
			return
		}

		logger.Debug(
			logkeys.Message, "created workflow",
			logkeys.WorkflowID, snap.UUID,
			logkeys.Status, snap.Status,
		)
		writeSnapshot(w, logger, snap, http.StatusCreated)
	}
}

// GetWorkflowHandler creates a HandlerFunc that returns the recomputed
// workflow using the requirements profile named in the "profile" query
// parameter.
func GetWorkflowHandler(updater WorkflowUpdater, profiles RequirementsProfiles, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		submissionID := submissionParam(w, r, logger)
		if submissionID == "" {
			return
		}
		profile := r.URL.Query().Get("profile")
		logger = logger.With(logkeys.SubmissionID, submissionID, "profile", profile)
		if updater == nil {
			logger.Info(logkeys.Message, "getting workflow", logkeys.Error, ErrNoEngine)
			api.JSONError(w, ErrNoEngine, 0)
			return
		}

		var req workflow.Requirements
		var ok bool
		if profiles != nil {
			req, ok = profiles.Requirements(profile)
		}
		if !ok {
			logger.Info(logkeys.Message, "looking up profile", logkeys.Error, ErrUnknownProfile)
			api.JSONError(w, ErrUnknownProfile, http.StatusBadRequest)
			return
		}

		snap, err := updater.UpdateFromAssessments(r.Context(), submissionID, req)
		if err != nil {
			logger.Info(logkeys.Message, "getting workflow", logkeys.Error, err)
			api.JSONError(w, err, statusCode(err))
			return
		}

		logger.Debug(logkeys.Message, "retrieved workflow", logkeys.Status, snap.Status)
		writeSnapshot(w, logger, snap, http.StatusOK)
	}
}

// UpdateWorkflowHandler creates a HandlerFunc that recomputes the workflow
// using the JSON requirements in the request body.
func UpdateWorkflowHandler(updater WorkflowUpdater, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		submissionID := submissionParam(w, r, logger)
		if submissionID == "" {
			return
		}
		logger = logger.With(logkeys.SubmissionID, submissionID)
		if updater == nil {
			logger.Info(logkeys.Message, "updating workflow", logkeys.Error, ErrNoEngine)
			api.JSONError(w, ErrNoEngine, 0)
			return
		}

		req := make(workflow.Requirements)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, http.StatusBadRequest)
			return
		}

		snap, err := updater.UpdateFromAssessments(r.Context(), submissionID, req)
		if err != nil {
			logger.Info(logkeys.Message, "updating workflow", logkeys.Error, err)
			api.JSONError(w, err, statusCode(err))
			return
		}

		logger.Debug(logkeys.Message, "updated workflow", logkeys.Status, snap.Status)
		writeSnapshot(w, logger, snap, http.StatusOK)
	}
}

// CancelWorkflowHandler creates a HandlerFunc that cancels a workflow.
func CancelWorkflowHandler(canceller WorkflowCanceller, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		submissionID := submissionParam(w, r, logger)
		if submissionID == "" {
			return
		}
		logger = logger.With(logkeys.SubmissionID, submissionID)
		if canceller == nil {
			logger.Info(logkeys.Message, "cancelling workflow", logkeys.Error, ErrNoEngine)
			api.JSONError(w, ErrNoEngine, 0)
			return
		}

		snap, err := canceller.CancelWorkflow(r.Context(), submissionID)
		if err != nil {
			logger.Info(logkeys.Message, "cancelling workflow", logkeys.Error, err)
			api.JSONError(w, err, statusCode(err))
			return
		}

		logger.Debug(logkeys.Message, "cancelled workflow")
		writeSnapshot(w, logger, snap, http.StatusOK)
	}
}
