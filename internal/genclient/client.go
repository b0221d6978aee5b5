package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaignforge/internal/domain"
)

// JobStatus mirrors the backend's reported job state.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the backend considers the job finished.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ServiceError normalizes every backend failure mode: network errors,
// timeouts, non-2xx statuses and malformed bodies. Retryable distinguishes
// transient conditions (network/timeout/5xx/429) from requests that can never
// succeed (4xx validation).
type ServiceError struct {
	Service    string
	Message    string
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Service, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// SubmitResult is the outcome of an accepted submission. Exactly one of JobID
// (asynchronous) or Artifacts (synchronous completion) is populated.
type SubmitResult struct {
	JobID     string
	Artifacts []domain.Artifact
}

// Async reports whether the job completes out of band and must be polled.
func (r *SubmitResult) Async() bool {
	return r != nil && r.JobID != ""
}

// StatusResult is one status query's view of an in-flight job.
type StatusResult struct {
	Status    JobStatus
	Artifacts []domain.Artifact
	Message   string
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// Client is a stateless request/response wrapper around the external
// generation backend. It performs no retries; retry policy belongs to the
// poller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient builds a Client, applying a bounded per-call timeout when the
// caller does not supply an http.Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("genclient: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		logger:     logger,
	}, nil
}

type wireArtifact struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Style  string `json:"style,omitempty"`
}

type submitRequest struct {
	PostID    int64    `json:"post_id"`
	Content   string   `json:"content"`
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Style     string   `json:"style"`
	Service   string   `json:"service"`
	Count     int      `json:"count"`
	Locale    string   `json:"locale,omitempty"`
}

type submitResponse struct {
	Accepted  bool           `json:"accepted"`
	JobID     string         `json:"job_id,omitempty"`
	Artifacts []wireArtifact `json:"artifacts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type statusResponse struct {
	Status    string         `json:"status"`
	Artifacts []wireArtifact `json:"artifacts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Submit sends one generation request for one post. Params are validated
// before any network call.
func (c *Client) Submit(ctx context.Context, post *domain.Post, params Params) (*SubmitResult, error) {
	if post == nil {
		return nil, fmt.Errorf("%w: post is required", domain.ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	payload := submitRequest{
		PostID:  post.ID,
		Content: post.Content,
		Prompt:  BuildPrompt(post.Content, params.Style, params.Locale),
		Style:   params.Style,
		Service: params.Service,
		Count:   params.Count,
		Locale:  params.Locale,
	}
	for _, a := range post.Images {
		if a.Selected && a.URL != "" {
			payload.ImageURLs = append(payload.ImageURLs, a.URL)
		}
	}

	endpoint := c.baseURL + "/v1/images/generate"
	if params.Kind == domain.ArtifactKindVideo {
		endpoint = c.baseURL + "/v1/videos/generate"
	}

	var out submitResponse
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &out, params.Service); err != nil {
		return nil, err
	}
	if !out.Accepted {
		msg := out.Error
		if msg == "" {
			msg = "submission rejected"
		}
		return nil, &ServiceError{Service: params.Service, Message: msg, Retryable: false}
	}
	if out.JobID == "" && len(out.Artifacts) == 0 {
		return nil, &ServiceError{Service: params.Service, Message: "accepted without job id or artifacts", Retryable: false}
	}
	return &SubmitResult{
		JobID:     out.JobID,
		Artifacts: c.convertArtifacts(out.Artifacts, params),
	}, nil
}

// QueryStatus fetches the current state of an asynchronous job.
func (c *Client) QueryStatus(ctx context.Context, jobID string) (*StatusResult, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrInvalidParams)
	}
	endpoint := c.baseURL + "/v1/jobs/" + jobID

	var out statusResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out, "backend"); err != nil {
		return nil, err
	}
	status := JobStatus(strings.ToLower(strings.TrimSpace(out.Status)))
	switch status {
	case StatusPending, StatusProcessing, StatusSucceeded, StatusFailed:
	default:
		return nil, &ServiceError{Service: "backend", Message: fmt.Sprintf("unknown job status %q", out.Status), Retryable: true}
	}
	return &StatusResult{
		Status:    status,
		Artifacts: c.convertArtifacts(out.Artifacts, Params{}),
		Message:   out.Error,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any, service string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genclient: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("genclient: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Service: service, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ServiceError{Service: service, Message: "read response: " + err.Error(), Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceErrorFromStatus(service, resp, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServiceError{Service: service, Message: "malformed response body", StatusCode: resp.StatusCode, Retryable: true}
	}
	return nil
}

func serviceErrorFromStatus(service string, resp *http.Response, body []byte) *ServiceError {
	msg := strings.TrimSpace(string(body))
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		msg = decoded.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	svcErr := &ServiceError{
		Service:    service,
		Message:    msg,
		StatusCode: resp.StatusCode,
		Retryable:  resp.StatusCode >= 500,
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		svcErr.Retryable = true
		svcErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return svcErr
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func (c *Client) convertArtifacts(wires []wireArtifact, params Params) []domain.Artifact {
	if len(wires) == 0 {
		return nil
	}
	kind := params.Kind
	if kind == "" {
		kind = domain.ArtifactKindImage
	}
	now := time.Now()
	out := make([]domain.Artifact, 0, len(wires))
	for i, w := range wires {
		style := w.Style
		if style == "" {
			style = params.Style
		}
		out = append(out, domain.Artifact{
			Kind:      kind,
			URL:       strings.TrimSpace(w.URL),
			Prompt:    w.Prompt,
			Order:     i,
			Selected:  true,
			Width:     w.Width,
			Height:    w.Height,
			Style:     style,
			Service:   params.Service,
			CreatedAt: now,
		})
	}
	return out
}
