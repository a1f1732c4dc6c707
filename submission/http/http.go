// Package http implements a submission service client over HTTP.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/assessflow/assessflow/submission"
)

// Doer executes HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client retrieves submissions from a remote submission service.
// Submissions are fetched with a GET of the submission ID appended to
// the base URL.
type Client struct {
	base   *url.URL
	apiKey string
	client Doer
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the API key sent as HTTP basic auth password.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithClient sets the HTTP client. Default is http.DefaultClient.
func WithClient(client Doer) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New creates a new submission service client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing submission url: %w", err)
	}
	c := &Client{base: base, client: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RetrieveSubmission fetches the submission from the remote service.
// A 404 response maps to submission.ErrNotFound and a 400 response to
// submission.ErrInvalidRequest.
func (c *Client) RetrieveSubmission(ctx context.Context, submissionID string) (*submission.Submission, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("%w: empty submission id", submission.ErrInvalidRequest)
	}
	u := c.base.JoinPath(submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth("assessflow", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieving submission: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", submission.ErrNotFound, submissionID)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", submission.ErrInvalidRequest, readErrorBody(resp.Body))
	default:
		return nil, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	sub := new(submission.Submission)
	if err = json.NewDecoder(resp.Body).Decode(sub); err != nil {
		return nil, fmt.Errorf("decoding submission: %w", err)
	}
	if sub.UUID == "" {
		sub.UUID = submissionID
	}
	return sub, nil
}

// readErrorBody extracts a short error message from a response body.
func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil || len(b) < 1 {
		return "no error message"
	}
	jsonErr := &struct {
		Err string `json:"error"`
	}{}
	if err = json.Unmarshal(b, jsonErr); err == nil && jsonErr.Err != "" {
		return jsonErr.Err
	}
	return string(b)
}
