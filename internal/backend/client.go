package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/version"
)

const (
	// APIPrefix is prepended to every endpoint path.
	APIPrefix = "/api/v1"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for idempotent requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Client talks to the user administration REST API.
type Client struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8000"
	BaseURL string

	// Token is sent as a bearer token when non-empty
	Token string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries applies to GET requests only
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetToken sets the bearer token
func (c *Client) SetToken(token string) {
	c.Token = token
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// ImageURL returns the public URL of an uploaded file in category.
func (c *Client) ImageURL(category, fileName string) string {
	return fmt.Sprintf("%s/images/%s/%s", c.BaseURL, category, fileName)
}

// Ping checks that the backend is reachable and accepts the token.
func (c *Client) Ping(ctx context.Context) error {
	var page Paginated[Role]
	return c.getJSON(ctx, "/roles", "current=1&pageSize=1", &page)
}

// request describes one API call.
type request struct {
	method      string
	path        string
	rawQuery    string
	body        []byte
	contentType string
	header      http.Header
}

func (r *request) url(base string) string {
	u := base + APIPrefix + r.path
	if r.rawQuery != "" {
		u += "?" + r.rawQuery
	}
	return u
}

// getJSON performs a GET with retries and decodes the envelope data into out.
func (c *Client) getJSON(ctx context.Context, path, rawQuery string, out any) error {
	req := &request{method: http.MethodGet, path: path, rawQuery: rawQuery}

	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ClassifyNetworkError(ctx.Err(), req.url(c.BaseURL))
			case <-time.After(delay):
			}

			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		err := c.doAttempt(ctx, req, attempt, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// sendJSON performs a single non-idempotent request with a JSON body.
func (c *Client) sendJSON(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return NewParseError("failed to encode request body", err)
	}
	req := &request{
		method:      method,
		path:        path,
		body:        data,
		contentType: "application/json",
	}
	return c.doAttempt(ctx, req, 0, out)
}

// doAttempt performs one HTTP round trip.
func (c *Client) doAttempt(ctx context.Context, r *request, attempt int, out any) error {
	endpoint := r.url(c.BaseURL)

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return NewNetworkError("failed to create request", err)
	}

	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	logging.LogAPIRequest(r.method, endpoint, attempt)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		apiErr := ClassifyNetworkError(err, endpoint)
		apiErr.Message = fmt.Sprintf("%s %s failed", r.method, r.path)
		return apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogAPIResponse(r.method, endpoint, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp.StatusCode, raw, endpoint)
	}

	if out == nil {
		return nil
	}

	env := Envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &env); err != nil {
		return NewParseError("failed to parse response envelope", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return NewParseError("response has no data", nil)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return NewParseError("failed to parse response data", err)
	}
	return nil
}

// decodeFailure builds the error for a non-2xx response, keeping the
// backend's own message when the body is a JSON envelope.
func decodeFailure(status int, raw []byte, endpoint string) error {
	var env Envelope[json.RawMessage]
	serverMsg := ""
	if err := json.Unmarshal(raw, &env); err == nil {
		serverMsg = env.Message.String()
		if serverMsg == "" {
			serverMsg = env.Error
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		serverMsg = text
	}

	var apiErr *APIError
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		apiErr = NewAuthError(status, serverMsg)
	} else {
		apiErr = NewHTTPError(status, serverMsg)
	}
	apiErr.Endpoint = endpoint
	return apiErr
}
