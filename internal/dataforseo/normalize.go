package dataforseo

import "strings"

// NormalizeDomain reduces any URL-ish input to a bare lowercase hostname:
// whitespace, scheme, leading "www.", and any path are stripped. The
// operation is idempotent, so already-normalized values pass through
// unchanged.
func NormalizeDomain(input string) string {
	domain := strings.ToLower(strings.TrimSpace(input))

	if idx := strings.Index(domain, "://"); idx >= 0 {
		domain = domain[idx+3:]
	}
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}

	return domain
}
