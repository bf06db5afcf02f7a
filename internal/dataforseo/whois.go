package dataforseo

import (
	"context"
	"encoding/json"
	"time"
)

// EndpointWhois is the provider path for domain whois overviews.
const EndpointWhois = "domain_analytics/whois/overview/live"

// WhoisResult is the normalized whois metric set for one domain. Success
// distinguishes "the call worked" from "the call failed": a domain the
// provider has never seen yields Success=true with all metric fields nil.
type WhoisResult struct {
	Success        bool
	Error          string
	Domain         string
	CreatedDate    *string
	ExpirationDate *string
	UpdatedDate    *string
	DomainAgeYears *float64
	Registrar      *string
	Cost           float64
}

type whoisPage struct {
	TotalCount int         `json:"total_count"`
	ItemsCount int         `json:"items_count"`
	Items      []whoisItem `json:"items"`
}

type whoisItem struct {
	Domain             string  `json:"domain"`
	CreatedDatetime    *string `json:"created_datetime"`
	ChangedDatetime    *string `json:"changed_datetime"`
	ExpirationDatetime *string `json:"expiration_datetime"`
	Registrar          *string `json:"registrar"`
}

// Whois fetches whois metrics for a domain. It never returns an error;
// failures land in the result's Error field.
func (c *Client) Whois(ctx context.Context, domain string, opts *RequestOptions) WhoisResult {
	target := NormalizeDomain(domain)
	opts = tagged(opts, target)

	payload := map[string]any{
		"limit":   1,
		"filters": []any{"domain", "=", target},
	}

	resp, err := c.Post(ctx, EndpointWhois, payload, opts)
	if err != nil {
		return WhoisResult{Domain: target, Error: err.Error()}
	}

	result := WhoisResult{Success: true, Domain: target, Cost: resp.Cost}

	raw := resp.FirstResult()
	if raw == nil {
		return result
	}
	var page whoisPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return WhoisResult{Domain: target, Error: "parse whois result: " + err.Error()}
	}
	if len(page.Items) == 0 {
		return result
	}

	item := page.Items[0]
	result.CreatedDate = item.CreatedDatetime
	result.ExpirationDate = item.ExpirationDatetime
	result.UpdatedDate = item.ChangedDatetime
	result.Registrar = item.Registrar
	result.DomainAgeYears = domainAge(item.CreatedDatetime, time.Now())

	return result
}

// domainAge converts a creation timestamp into fractional years. Returns nil
// when the timestamp is absent or unparseable.
func domainAge(created *string, now time.Time) *float64 {
	if created == nil || *created == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05 -07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, *created); err == nil {
			years := now.Sub(t).Hours() / (24 * 365.25)
			if years < 0 {
				years = 0
			}
			return &years
		}
	}
	return nil
}

// tagged ensures request options carry the normalized domain for diagnostics.
func tagged(opts *RequestOptions, domain string) *RequestOptions {
	if opts == nil {
		opts = &RequestOptions{}
	}
	out := *opts
	out.Domain = domain
	return &out
}
