package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mwhitford/domaincred/internal/credential"
	"github.com/mwhitford/domaincred/internal/diaglog"
)

const (
	// DefaultBaseURL is the provider's v3 API root.
	DefaultBaseURL = "https://api.dataforseo.com/v3"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the total attempt count, including the first.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the backoff unit; actual sleep is the unit
	// multiplied by the attempt number.
	DefaultRetryDelay = time.Second

	// DefaultRateLimitPerMinute caps outbound requests in the sliding window.
	DefaultRateLimitPerMinute = 2000

	// maxErrorSnippet truncates response bodies carried in error messages.
	maxErrorSnippet = 200
)

// ClientOption configures the client.
type ClientOption func(*Client) error

// WithBaseURL sets a custom API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithTimeout sets the per-attempt abort deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithMaxRetries sets the total attempt budget.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("max retries must be at least 1, got %d", n)
		}
		c.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the linear backoff unit.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.retryDelay = d
		return nil
	}
}

// WithRateLimit replaces the sliding-window limit.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) error {
		limiter, err := NewRateLimiter(perMinute)
		if err != nil {
			return err
		}
		c.limiter = limiter
		return nil
	}
}

// Client calls the provider with Basic auth, a per-attempt timeout, sliding
// window rate limiting, and classified linear-backoff retries. Construct it
// once at startup and pass it explicitly; per-client-code instances belong
// in a Registry.
type Client struct {
	creds      credential.Credentials
	clientCode string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	limiter    *RateLimiter
	httpClient *http.Client
	diag       *diaglog.Logger
}

// NewClient creates a provider client using the given credentials. The
// default HTTP transport is instrumented with otelhttp so outbound calls
// appear in traces.
func NewClient(creds credential.Credentials, diag *diaglog.Logger, opts ...ClientOption) (*Client, error) {
	limiter, err := NewRateLimiter(DefaultRateLimitPerMinute)
	if err != nil {
		return nil, err
	}

	c := &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		limiter:    limiter,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		diag:       diag,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply client option: %w", err)
		}
	}

	return c, nil
}

// RequestOptions carries per-call tags for diagnostics.
type RequestOptions struct {
	Domain       string
	LocationCode int
	ClientCode   string
}

// Post executes a provider POST with the full retry contract: wait for a
// rate-limit slot, attempt the call, classify any failure, and retry with
// linear backoff while the classification is retryable and attempts remain.
// Every attempt outcome is recorded against the context's correlation id.
func (c *Client) Post(ctx context.Context, endpoint string, payload any, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	clientCode := opts.ClientCode
	if clientCode == "" {
		clientCode = c.clientCode
	}
	entryOpts := diaglog.EntryOptions{
		Domain:       opts.Domain,
		LocationCode: opts.LocationCode,
		ClientCode:   clientCode,
	}

	var lastErr *APIError
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.WaitForSlot(ctx); err != nil {
			return nil, NewAPIError(ErrorKindTimeout, fmt.Sprintf("canceled waiting for rate limit slot: %v", err)).
				WithEndpoint(endpoint)
		}

		entry := c.diag.NewEntry(ctx, endpoint, http.MethodPost, entryOpts)
		start := time.Now()
		resp, httpStatus, apiStatus, err := c.execute(ctx, endpoint, payload)
		elapsed := time.Since(start)

		if err == nil {
			c.diag.Save(ctx, diaglog.MarkSuccess(entry, diaglog.SuccessDetails{
				Duration:      elapsed,
				HTTPStatus:    httpStatus,
				APIStatusCode: resp.StatusCode,
				Cost:          resp.Cost,
				RetryCount:    attempt - 1,
			}))
			return resp, nil
		}

		apiErr := toAPIError(err, endpoint, httpStatus, apiStatus)
		lastErr = apiErr

		details := diaglog.ErrorDetails{
			Duration:      elapsed,
			HTTPStatus:    apiErr.HTTPStatus,
			APIStatusCode: apiErr.APIStatusCode,
			ErrorType:     string(apiErr.Kind),
			ErrorMessage:  apiErr.Message,
			RetryCount:    attempt - 1,
		}

		if apiErr.Retryable && attempt < c.maxRetries {
			c.diag.Save(ctx, diaglog.MarkRetrying(entry, details))
			if err := sleepCtx(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
				return nil, apiErr
			}
			continue
		}

		c.diag.Save(ctx, diaglog.MarkError(entry, details))
		return nil, apiErr
	}

	return nil, lastErr
}

// toAPIError classifies a raw attempt failure. Errors that are already
// classified pass through unchanged.
func toAPIError(err error, endpoint string, httpStatus, apiStatus int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	cls := Classify(httpStatus, apiStatus, err.Error())
	return &APIError{
		Kind:          cls.Kind,
		Message:       err.Error(),
		Endpoint:      endpoint,
		HTTPStatus:    httpStatus,
		APIStatusCode: apiStatus,
		Retryable:     cls.Retryable,
	}
}

// execute performs a single attempt. It returns the HTTP status and provider
// status code alongside any error so the caller can classify the failure.
func (c *Client) execute(ctx context.Context, endpoint string, payload any) (*Response, int, int, error) {
	body, err := json.Marshal(wrapPayload(payload))
	if err != nil {
		return nil, 0, 0, NewAPIError(ErrorKindParse, fmt.Sprintf("marshal request payload: %v", err)).
			WithEndpoint(endpoint)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			// HTTP-equivalent 408 so the classifier sees a timeout.
			return nil, http.StatusRequestTimeout, 0,
				fmt.Errorf("request timeout after %s", c.timeout)
		}
		return nil, 0, 0, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, 0,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, maxErrorSnippet))
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, resp.StatusCode, 0,
			NewAPIError(ErrorKindParse, fmt.Sprintf("parse response: %v", err)).
				WithEndpoint(endpoint).WithHTTPStatus(resp.StatusCode)
	}

	// The transport can succeed while the logical operation fails; surface
	// provider-level failures with their own status code.
	if parsed.StatusCode >= apiErrorThreshold {
		return nil, resp.StatusCode, parsed.StatusCode,
			fmt.Errorf("API error %d: %s", parsed.StatusCode, parsed.StatusMessage)
	}
	if taskCode, taskMsg := parsed.TaskStatus(); taskCode >= apiErrorThreshold {
		return nil, resp.StatusCode, taskCode,
			fmt.Errorf("task error %d: %s", taskCode, taskMsg)
	}

	return &parsed, resp.StatusCode, parsed.StatusCode, nil
}

// wrapPayload enforces the provider convention that POST bodies are arrays
// of task objects even for a single task.
func wrapPayload(payload any) any {
	if payload == nil {
		return []any{}
	}
	if reflect.TypeOf(payload).Kind() == reflect.Slice {
		return payload
	}
	return []any{payload}
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
