package http

import (
	"net/http"

	"github.com/micromdm/nanolib/log"
)

type APIEngine interface {
	WorkflowCreator
	WorkflowUpdater
	WorkflowCanceller
}

// Mux can register HTTP handlers.
// Ostensibly this supports flow router.
type Mux interface {
	// Handle registers the handler for the given pattern.
	Handle(pattern string, handler http.Handler, methods ...string)
}

// HandleAPIv1 registers the various API handlers into mux.
// API endpoint paths are prepended with prefix.
// Authentication or any other layered handlers are not present.
// They are assumed to be layered with mux, possibly at the Handle call.
// If prefix is empty and these handlers are used in sub-paths then
// handlers should have that sub-path stripped from the request.
// The logger is adorned with a "handler" key of the endpoint name.
func HandleAPIv1(prefix string, mux Mux, logger log.Logger, e APIEngine, p RequirementsProfiles) {
	mux.Handle(
		prefix+"/workflow/:submission",
		CreateWorkflowHandler(e, logger.With("handler", "create workflow")),
		"POST",
	)
	mux.Handle(
		prefix+"/workflow/:submission",
		GetWorkflowHandler(e, p, logger.With("handler", "get workflow")),
		"GET",
	)
	mux.Handle(
		prefix+"/workflow/:submission/update",
		UpdateWorkflowHandler(e, logger.With("handler", "update workflow")),
		"POST",
	)
	mux.Handle(
		prefix+"/workflow/:submission/cancel",
		CancelWorkflowHandler(e, logger.With("handler", "cancel workflow")),
		"POST",
	)
}
