// Package webhook receives assessment events and recomputes the
// workflows of the assessed submissions.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/assessflow/assessflow/engine"
	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/workflow"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

// TopicPrefix prefixes the topics of processed events.
// Events with other topics are acknowledged and ignored.
const TopicPrefix = "assessment."

var (
	ErrNoSubmission   = errors.New("event missing submission")
	ErrUnknownProfile = errors.New("unknown requirements profile")
)

// Event is an assessment event.
// Requirements, if present, take precedence over the named profile.
type Event struct {
	Topic     string    `json:"topic"`
	EventID   string    `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	SubmissionUUID string                `json:"submission_uuid"`
	Profile        string                `json:"profile,omitempty"`
	Requirements   workflow.Requirements `json:"requirements,omitempty"`
}

// Updater recomputes workflows.
type Updater interface {
	UpdateFromAssessments(ctx context.Context, submissionID string, req workflow.Requirements) (*engine.Snapshot, error)
}

// Profiles looks up named requirements.
type Profiles interface {
	Requirements(name string) (workflow.Requirements, bool)
}

// requirements selects the requirements for e.
func requirements(e *Event, profiles Profiles) (workflow.Requirements, error) {
	if e.Requirements != nil {
		return e.Requirements, nil
	}
	if profiles != nil {
		if req, ok := profiles.Requirements(e.Profile); ok {
			return req, nil
		}
	}
	return nil, ErrUnknownProfile
}

func logsFromEvent(e *Event) (logs []interface{}) {
	if e == nil {
		return
	}
	logs = []interface{}{"topic", e.Topic}
	if e.EventID != "" {
		logs = append(logs, "event_id", e.EventID)
	}
	if e.SubmissionUUID != "" {
		logs = append(logs, logkeys.SubmissionID, e.SubmissionUUID)
	}
	if e.Profile != "" {
		logs = append(logs, "profile", e.Profile)
	}
	return
}

func errorStatus(err error) int {
	switch {
	case engine.IsRequestError(err):
		return http.StatusBadRequest
	case engine.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Handler parses assessment event callbacks and hands them off to u.
func Handler(u Updater, profiles Profiles, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)

		event := new(Event)
		if err := json.NewDecoder(r.Body).Decode(event); err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		logger = logger.With(logsFromEvent(event)...)

		if !strings.HasPrefix(event.Topic, TopicPrefix) {
			logger.Debug(logkeys.Message, "ignoring event")
			return
		}

		if event.SubmissionUUID == "" {
			logger.Info(logkeys.Message, "checking event", logkeys.Error, ErrNoSubmission)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		req, err := requirements(event, profiles)
		if err != nil {
			logger.Info(logkeys.Message, "selecting requirements", logkeys.Error, err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		snap, err := u.UpdateFromAssessments(r.Context(), event.SubmissionUUID, req)
		if err != nil {
			logger.Info(logkeys.Message, "updating workflow", logkeys.Error, err)
			code := errorStatus(err)
			http.Error(w, http.StatusText(code), code)
			return
		}

		logger.Debug(
			logkeys.Message, "webhook event",
			logkeys.WorkflowID, snap.UUID,
			logkeys.Status, snap.Status,
		)
	}
}
