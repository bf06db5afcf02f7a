package dataforseo

import (
	"fmt"
	"testing"
)

func TestIsKind(t *testing.T) {
	base := NewAPIError(ErrorKindRateLimited, "too many requests").WithEndpoint(EndpointWhois)

	if !IsKind(base, ErrorKindRateLimited) {
		t.Error("IsKind() = false for a direct *APIError")
	}
	if IsKind(base, ErrorKindTimeout) {
		t.Error("IsKind() matched the wrong kind")
	}

	// Wrapped errors, such as those from registry construction, must still
	// match.
	wrapped := fmt.Errorf("resolve credentials for %q: %w", "acme", base)
	if !IsKind(wrapped, ErrorKindRateLimited) {
		t.Error("IsKind() = false for a wrapped *APIError")
	}

	if IsKind(fmt.Errorf("plain error"), ErrorKindRateLimited) {
		t.Error("IsKind() matched a non-API error")
	}
	if IsKind(nil, ErrorKindRateLimited) {
		t.Error("IsKind() matched nil")
	}
}

func TestAPIError_Error(t *testing.T) {
	withEndpoint := NewAPIError(ErrorKindTimeout, "request timeout after 30s").WithEndpoint(EndpointLabs)
	want := "TIMEOUT: request timeout after 30s (" + EndpointLabs + ")"
	if got := withEndpoint.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := NewAPIError(ErrorKindNetwork, "connection refused")
	if got := bare.Error(); got != "NETWORK_ERROR: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}
