package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"solvebox/internal/playground/result"
	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// envelope is the error body the server sends for non-2xx replies.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the evaluation server. Base URL and timeout may change while
// a request is in flight; each request uses the values current when it starts.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = baseURL
	c.mu.Unlock()
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	c.mu.Lock()
	c.timeout = timeout
	c.mu.Unlock()
}

// Do sends one request. Network failures are returned as TransportFailed errors.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	c.mu.RLock()
	baseURL, timeout := c.baseURL, c.timeout
	c.mu.RUnlock()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", baseURL, path), reader)
	if err != nil {
		return info, appErr.TransportError(fmt.Errorf("build request failed: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, appErr.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, appErr.TransportError(fmt.Errorf("read response body failed: %w", err))
	}
	info.Body = bodyBytes
	return info, nil
}

// Run posts a submission to /run and returns the undecoded result. A non-2xx
// reply still counts as a result when its body carries both passed and details.
func (c *Client) Run(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
	var raw result.RawResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return raw, appErr.Wrapf(err, appErr.InvalidParams, "encode run request failed: %v", err)
	}
	info, err := c.Do(ctx, http.MethodPost, "/run", payload)
	if err != nil {
		return raw, err
	}
	if err := checkStatus(info); err != nil {
		if json.Unmarshal(info.Body, &raw) == nil && raw.Passed != nil && raw.Details != nil {
			return raw, nil
		}
		return result.RawResponse{}, err
	}
	if err := json.Unmarshal(info.Body, &raw); err != nil {
		return raw, appErr.Wrapf(err, appErr.MalformedResponse, "%s: %v", appErr.MalformedResponse.Message(), err)
	}
	return raw, nil
}

// FetchIndex returns the problem catalogue grouped by day.
func (c *Client) FetchIndex(ctx context.Context) ([]api.IndexDay, error) {
	var days []api.IndexDay
	if err := c.getData(ctx, "/api/problems", &days); err != nil {
		return nil, err
	}
	return days, nil
}

// FetchProblem returns one problem with its starter code.
func (c *Client) FetchProblem(ctx context.Context, problemID string) (api.ProblemView, error) {
	var view api.ProblemView
	err := c.getData(ctx, "/api/problems/"+url.PathEscape(problemID), &view)
	return view, err
}

// FetchProgress returns the solved problem ids.
func (c *Client) FetchProgress(ctx context.Context) (api.Progress, error) {
	var progress api.Progress
	err := c.getData(ctx, "/api/progress", &progress)
	return progress, err
}

// getData performs a GET and decodes the data field of the response envelope.
func (c *Client) getData(ctx context.Context, path string, out interface{}) error {
	info, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := checkStatus(info); err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(info.Body, &env); err != nil {
		return appErr.Wrapf(err, appErr.MalformedResponse, "%s: %v", appErr.MalformedResponse.Message(), err)
	}
	if len(env.Data) == 0 {
		return appErr.Newf(appErr.MalformedResponse, "%s: missing data", appErr.MalformedResponse.Message())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return appErr.Wrapf(err, appErr.MalformedResponse, "%s: %v", appErr.MalformedResponse.Message(), err)
	}
	return nil
}

func checkStatus(info ResponseInfo) error {
	if info.StatusCode >= 200 && info.StatusCode < 300 {
		return nil
	}
	message := http.StatusText(info.StatusCode)
	var env envelope
	if err := json.Unmarshal(info.Body, &env); err == nil && env.Message != "" {
		message = env.Message
	}
	err := appErr.Newf(appErr.UnexpectedStatus, "server returned %d: %s", info.StatusCode, message).
		WithDetail("status", info.StatusCode)
	if env.Code != 0 {
		err.WithDetail("server_code", env.Code)
	}
	return err
}
