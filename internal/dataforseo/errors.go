// Package dataforseo implements the resilient client for the DataForSEO v3
// API: request execution with timeout, sliding-window rate limiting, error
// classification, linear-backoff retry, and the typed endpoint adapters for
// whois, backlinks, and labs metrics.
package dataforseo

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a provider call failure.
type ErrorKind string

const (
	ErrorKindNetwork            ErrorKind = "NETWORK_ERROR"
	ErrorKindTimeout            ErrorKind = "TIMEOUT"
	ErrorKindUnauthorized       ErrorKind = "UNAUTHORIZED"
	ErrorKindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	ErrorKindRateLimited        ErrorKind = "RATE_LIMITED"
	ErrorKindInvalidRequest     ErrorKind = "INVALID_REQUEST"
	ErrorKindNotFound           ErrorKind = "NOT_FOUND"
	ErrorKindServer             ErrorKind = "SERVER_ERROR"
	ErrorKindNoCredentials      ErrorKind = "NO_CREDENTIALS"
	ErrorKindNoData             ErrorKind = "NO_DATA"
	ErrorKindParse              ErrorKind = "PARSE_ERROR"
)

// APIError is the typed error surfaced by the client after classification.
// Retryable reports whether the client considered the failure transient;
// by the time a caller sees the error, retries have already been exhausted.
type APIError struct {
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	Endpoint      string    `json:"endpoint,omitempty"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	APIStatusCode int       `json:"api_status_code,omitempty"`
	Retryable     bool      `json:"retryable"`
}

func (e *APIError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Endpoint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewAPIError creates an APIError with the given kind and message.
func NewAPIError(kind ErrorKind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

// WithEndpoint tags the error with the endpoint that produced it.
func (e *APIError) WithEndpoint(endpoint string) *APIError {
	e.Endpoint = endpoint
	return e
}

// WithHTTPStatus records the HTTP status of the failed attempt.
func (e *APIError) WithHTTPStatus(status int) *APIError {
	e.HTTPStatus = status
	return e
}

// WithAPIStatusCode records the provider-level status code.
func (e *APIError) WithAPIStatusCode(code int) *APIError {
	e.APIStatusCode = code
	return e
}

// IsKind reports whether err is, or wraps, an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
