package dataforseo

import "strings"

// Classification is the outcome of error classification: an error kind plus
// whether the condition is worth retrying.
type Classification struct {
	Kind      ErrorKind
	Retryable bool
}

// Provider status code classes. Codes at or above serverErrorCode indicate a
// provider-side failure despite a successful transport.
const (
	authCodeMin       = 40100
	authCodeMax       = 40199
	validationCode    = 40501
	badFieldCode      = 40005
	throttleCodeA     = 40202
	throttleCodeB     = 40209
	serverErrorCode   = 50000
	apiErrorThreshold = 40000
)

// Classify maps an HTTP status, a provider status code, and an error message
// into a Classification. Precedence is fixed: HTTP status first, then the
// provider code, then message heuristics. Unknown conditions classify as a
// non-retryable server error so an unclassified failure can never loop.
// Zero-valued statuses mean "absent".
func Classify(httpStatus, apiStatusCode int, message string) Classification {
	switch {
	case httpStatus == 401 || httpStatus == 403:
		return Classification{ErrorKindUnauthorized, false}
	case httpStatus == 429:
		return Classification{ErrorKindRateLimited, true}
	case httpStatus >= 500:
		return Classification{ErrorKindServer, true}
	case httpStatus == 404:
		return Classification{ErrorKindNotFound, false}
	}

	switch {
	case apiStatusCode >= authCodeMin && apiStatusCode <= authCodeMax:
		return Classification{ErrorKindUnauthorized, false}
	case apiStatusCode == validationCode || apiStatusCode == badFieldCode:
		return Classification{ErrorKindInvalidRequest, false}
	case apiStatusCode == throttleCodeA || apiStatusCode == throttleCodeB:
		return Classification{ErrorKindRateLimited, true}
	case apiStatusCode >= serverErrorCode:
		return Classification{ErrorKindServer, true}
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "aborted") ||
		strings.Contains(msg, "context deadline exceeded"):
		return Classification{ErrorKindTimeout, true}
	case strings.Contains(msg, "network") || strings.Contains(msg, "fetch failed") ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return Classification{ErrorKindNetwork, true}
	}

	return Classification{ErrorKindServer, false}
}
