// Package submission defines the contract of the external submission service.
package submission

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a submission does not exist.
	ErrNotFound = errors.New("submission not found")

	// ErrInvalidRequest is returned when the submission service
	// rejects the request (e.g. a malformed identifier).
	ErrInvalidRequest = errors.New("invalid submission request")
)

// Submission is a submitted artifact as reported by the submission service.
// Only the identity is used by the workflow engine.
type Submission struct {
	UUID        string    `json:"uuid"`
	StudentItem string    `json:"student_item,omitempty"`
	Attempt     int       `json:"attempt_number,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// Retriever retrieves submissions from the submission service.
// Errors wrap ErrNotFound or ErrInvalidRequest where applicable; any
// other error is an internal failure of the service.
type Retriever interface {
	RetrieveSubmission(ctx context.Context, submissionID string) (*Submission, error)
}

// Static is a Retriever backed by a fixed set of submissions.
type Static map[string]*Submission

// RetrieveSubmission implements Retriever.
func (s Static) RetrieveSubmission(_ context.Context, submissionID string) (*Submission, error) {
	sub, ok := s[submissionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sub, nil
}
