package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRetriesExhausted is wrapped by an InternalError when concurrent
// status updates kept conflicting.
var ErrRetriesExhausted = errors.New("status update retries exhausted")

// RequestError is returned when the caller supplied an invalid request:
// a malformed identifier, a submission that does not exist, invalid
// requirements or a workflow that already exists when creating.
type RequestError struct {
	Msg string

	// maps request field names to error messages. may be nil.
	FieldErrors map[string]string
}

func (e *RequestError) Error() string {
	if len(e.FieldErrors) < 1 {
		return e.Msg
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for i, k := range fields {
		fields[i] = k + ": " + e.FieldErrors[k]
	}
	return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(fields, "; "))
}

func newRequestError(field, msg string) *RequestError {
	return &RequestError{Msg: msg, FieldErrors: map[string]string{field: msg}}
}

// NotFoundError is returned when no workflow exists for a submission.
type NotFoundError struct {
	SubmissionID string
}

func (e *NotFoundError) Error() string {
	return "no assessment workflow matching submission " + e.SubmissionID
}

// InternalError is returned for failures the caller can not remedy:
// storage, submission service or evaluator failures and exhausted
// status update retries.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsRequestError returns true if err is or wraps a RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// IsNotFoundError returns true if err is or wraps a NotFoundError.
func IsNotFoundError(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// IsInternalError returns true if err is or wraps an InternalError.
func IsInternalError(err error) bool {
	var intErr *InternalError
	return errors.As(err, &intErr)
}
