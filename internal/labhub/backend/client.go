// Package backend provides the HTTP client for the main LabHub backend:
// the external service that owns authentication, VM provisioning, admin
// views, and report storage. The gateway only reshapes and relays; all
// persistence lives upstream.
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// UpstreamError represents a non-2xx response from the backend. The status
// code mirrors the upstream's; Message is extracted from the body when the
// upstream sent a structured error.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

// TransportError represents a network-level failure reaching the backend.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is the REST client for the main backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    uint
	observe    func(path string, d time.Duration)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLatencyObserver registers a callback receiving the duration of each
// upstream request, attempts included.
func WithLatencyObserver(fn func(path string, d time.Duration)) ClientOption {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient creates a backend client. retries applies to GET requests only;
// mutating calls are never retried because the extend contract carries no
// idempotency token.
func NewClient(baseURL string, timeout time.Duration, retries uint, opts ...ClientOption) *Client {
	if retries == 0 {
		retries = 1
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retries: retries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL. Empty when unconfigured.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions describes one backend request.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        []byte
	BearerToken string
	ContentType string
}

// DoRequest performs a request against the backend and returns the response
// body and status code. Non-2xx responses return an *UpstreamError;
// network failures return a *TransportError.
func (c *Client) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, int, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	attempts := uint(1)
	if opts.Method == http.MethodGet {
		attempts = c.retries
	}

	if c.observe != nil {
		start := time.Now()
		defer func() {
			c.observe(opts.Path, time.Since(start))
		}()
	}

	var body []byte
	var statusCode int
	rerr := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
		if err != nil {
			return retry.Unrecoverable(&TransportError{Err: err})
		}
		contentType := opts.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
		if opts.BearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+opts.BearerToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &TransportError{Err: err}
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Err: err}
		}
		statusCode = resp.StatusCode
		return nil
	},
		retry.Attempts(attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.Delay(200*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).
				Str("path", opts.Path).Msg("retrying backend request")
		}),
	)
	if rerr != nil {
		return nil, 0, rerr
	}

	if statusCode < 200 || statusCode >= 300 {
		return nil, statusCode, &UpstreamError{
			StatusCode: statusCode,
			Message:    extractErrorMessage(body),
			Body:       string(body),
		}
	}
	return body, statusCode, nil
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, p string, query map[string]string, token string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        p,
		QueryParams: query,
		BearerToken: token,
	})
	return body, err
}

// Post performs a POST request and returns the response body.
func (c *Client) Post(ctx context.Context, p string, body []byte, token string) ([]byte, error) {
	rsp, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodPost,
		Path:        p,
		Body:        body,
		BearerToken: token,
	})
	return rsp, err
}

// Delete performs a DELETE request and returns the response body.
func (c *Client) Delete(ctx context.Context, p string, token string) ([]byte, error) {
	rsp, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodDelete,
		Path:        p,
		BearerToken: token,
	})
	return rsp, err
}

// extractErrorMessage pulls a human-readable message out of a structured
// upstream error body. The backend uses either "message" or "error".
func extractErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return msg.String()
	}
	return ""
}
