// Package http implements step evaluators that consult a remote assessment service over HTTP.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/assessflow/assessflow/workflow"
)

// Doer executes HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request is the JSON body posted to the assessment service.
type Request struct {
	SubmissionUUID string          `json:"submission_uuid"`
	Step           workflow.Step   `json:"step"`
	Requirements   workflow.Params `json:"requirements"`
}

// Response is the JSON body returned by the assessment service.
type Response struct {
	Satisfied bool            `json:"satisfied"`
	Graded    *bool           `json:"graded,omitempty"`
	Detail    workflow.Detail `json:"detail,omitempty"`
}

// Evaluator is a workflow.Evaluator for a single step that posts
// evaluation requests to a remote assessment service.
type Evaluator struct {
	step   workflow.Step
	url    string
	apiKey string
	client Doer
}

// Option configures the evaluator.
type Option func(*Evaluator)

// WithAPIKey sets the API key sent as HTTP basic auth password.
func WithAPIKey(key string) Option {
	return func(e *Evaluator) {
		e.apiKey = key
	}
}

// WithClient sets the HTTP client. Default is http.DefaultClient.
func WithClient(client Doer) Option {
	return func(e *Evaluator) {
		e.client = client
	}
}

// New creates a new remote evaluator for step at url.
func New(step workflow.Step, url string, opts ...Option) *Evaluator {
	e := &Evaluator{step: step, url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) do(ctx context.Context, submissionID string, params workflow.Params) (*Response, error) {
	body, err := json.Marshal(&Request{
		SubmissionUUID: submissionID,
		Step:           e.step,
		Requirements:   params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.SetBasicAuth("assessflow", e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", e.step, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evaluating %s: unexpected HTTP status: %s", e.step, resp.Status)
	}
	r := new(Response)
	if err = json.NewDecoder(resp.Body).Decode(r); err != nil {
		return nil, fmt.Errorf("decoding %s evaluation: %w", e.step, err)
	}
	return r, nil
}

// Evaluate implements workflow.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, submissionID string, params workflow.Params) (bool, workflow.Detail, error) {
	r, err := e.do(ctx, submissionID, params)
	if err != nil {
		return false, nil, err
	}
	return r.Satisfied, r.Detail, nil
}

// GradingEvaluator is an Evaluator that is also a workflow.Grader.
// It is used for steps where the submission is assessed by others (e.g. peer).
type GradingEvaluator struct {
	*Evaluator
}

// NewGrading creates a new remote grading evaluator for step at url.
func NewGrading(step workflow.Step, url string, opts ...Option) *GradingEvaluator {
	return &GradingEvaluator{Evaluator: New(step, url, opts...)}
}

// EvaluateGraded implements workflow.Grader with a single request.
// A response without a graded value is considered graded.
func (e *GradingEvaluator) EvaluateGraded(ctx context.Context, submissionID string, params workflow.Params) (bool, bool, workflow.Detail, error) {
	r, err := e.do(ctx, submissionID, params)
	if err != nil {
		return false, false, nil, err
	}
	return r.Satisfied, r.Graded == nil || *r.Graded, r.Detail, nil
}
