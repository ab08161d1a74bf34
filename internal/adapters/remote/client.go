// Package remote implements the client for the hosted llms.txt generation
// service: job submission, status polling, and the run-to-completion loop.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/job"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

const (
	// DefaultAPIURL is the managed cloud endpoint.
	DefaultAPIURL = "https://api.repopack.dev"

	// cloudAPIHost is the host for which a bearer token is mandatory.
	// Self-hosted endpoints may run without one.
	cloudAPIHost = "api.repopack.dev"

	// DefaultPollInterval is the fixed delay between status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultTimeout bounds each individual HTTP request. The polling loop
	// itself carries no deadline: a job that never leaves processing polls
	// until the caller's context ends.
	DefaultTimeout = 30 * time.Second
)

// Config holds the client configuration.
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns a Config pointing at the managed cloud endpoint.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIURL:  DefaultAPIURL,
		APIKey:  apiKey,
		Timeout: DefaultTimeout,
	}
}

// Client drives generation jobs on the remote service.
type Client struct {
	httpClient   *http.Client
	config       Config
	pollInterval time.Duration
	logger       *logging.Logger
}

// Ensure Client implements ports.JobRunner.
var _ ports.JobRunner = (*Client)(nil)

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPollInterval overrides the inter-poll delay. Intended for tests; the
// protocol contract is the 2-second default.
func WithPollInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithLogger sets the logger used for poll diagnostics.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a remote job client with functional options.
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	config.APIURL = strings.TrimSuffix(config.APIURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	parsed, err := url.Parse(config.APIURL)
	if err != nil {
		return nil, errors.NewError(errors.CodeConfig, "invalid API URL", err)
	}
	if parsed.Host == cloudAPIHost && config.APIKey == "" {
		return nil, errors.NewError(errors.CodeConfig,
			"the managed endpoint requires a token", errors.ErrAPIKeyRequired)
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: config.Timeout},
		config:       config,
		pollInterval: DefaultPollInterval,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit starts a generation job and returns its identifier. Failures carry
// the server's message and HTTP status; nothing is retried at this layer.
func (c *Client) Submit(ctx context.Context, params ports.GenerateParams) (string, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to marshal request", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/llmstxt", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-idempotency-key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewError(errors.CodeRemote, "submit request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp)
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to decode submit response", err)
	}
	if !result.Success || result.ID == "" {
		msg := result.Error
		if msg == "" {
			msg = "submission rejected"
		}
		return "", errors.NewRemoteError(resp.StatusCode, msg, nil)
	}

	c.logger.InfoContext(ctx, "generation job submitted",
		"job_id", result.ID,
		"target_url", params.URL,
	)
	return result.ID, nil
}

// PollStatus fetches the current snapshot of a job. A 404 is fatal: the job
// does not exist and polling again cannot change that.
func (c *Client) PollStatus(ctx context.Context, id string) (*job.Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/llmstxt/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewError(errors.CodeRemote, "status request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewRemoteError(http.StatusNotFound,
			fmt.Sprintf("job %s not found", id), errors.ErrJobNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to decode status response", err)
	}

	snapshot := &job.Snapshot{
		ID:     id,
		Status: job.Status(result.Status),
		Error:  result.Error,
	}
	if result.Data.LLMsText != "" || result.Data.LLMsFullText != "" {
		snapshot.Result = &job.Result{
			LLMsText:     result.Data.LLMsText,
			LLMsFullText: result.Data.LLMsFullText,
		}
	}
	if result.ExpiresAt != "" {
		if expires, err := time.Parse(time.RFC3339, result.ExpiresAt); err == nil {
			snapshot.ExpiresAt = expires
		}
	}
	return snapshot, nil
}

// RunToCompletion submits a job, then polls on a fixed interval until the
// job reaches a terminal state.
//
// The loop imposes no deadline of its own: a job that stays in processing is
// polled until the caller's context is cancelled. A poll reporting a status
// outside the known enumeration ends the loop with a protocol failure
// instead of spinning forever.
func (c *Client) RunToCompletion(ctx context.Context, params ports.GenerateParams) (*job.Snapshot, error) {
	id, err := c.Submit(ctx, params)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithJobID(ctx, id)

	for {
		snapshot, err := c.PollStatus(ctx, id)
		if err != nil {
			return nil, err
		}

		switch snapshot.Status {
		case job.StatusCompleted:
			c.logger.InfoContext(ctx, "generation job completed")
			return snapshot, nil
		case job.StatusFailed:
			msg := snapshot.Error
			if msg == "" {
				msg = "no reason reported"
			}
			return snapshot, errors.NewError(errors.CodeRemote,
				fmt.Sprintf("generation failed: %s", msg), errors.ErrJobFailed)
		case job.StatusProcessing:
			c.logger.DebugContext(ctx, "generation job still processing")
		default:
			return snapshot, errors.NewError(errors.CodeProtocol,
				fmt.Sprintf("server reported status %q", snapshot.Status),
				errors.ErrUnexpectedStatus)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// newRequest creates an HTTP request with the standard headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+path, bodyReader)
	if err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return req, nil
}

// handleErrorResponse extracts the server's message from a non-success
// response and classifies it by HTTP status.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode), err)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		// If we can't parse the error, return the raw body
		return errors.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return errors.NewRemoteError(resp.StatusCode, errResp.Error, nil)
}
