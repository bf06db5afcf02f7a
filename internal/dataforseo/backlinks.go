package dataforseo

import (
	"context"
	"encoding/json"
)

// EndpointBacklinks is the provider path for backlink summaries.
const EndpointBacklinks = "backlinks/summary/live"

// BacklinksResult is the normalized backlink metric set for one domain.
type BacklinksResult struct {
	Success              bool
	Error                string
	Domain               string
	Backlinks            *int64
	ReferringDomains     *int64
	ReferringMainDomains *int64
	ReferringIPs         *int64
	BrokenBacklinks      *int64
	Rank                 *int
	Cost                 float64
}

type backlinksSummary struct {
	Target               string `json:"target"`
	Rank                 *int   `json:"rank"`
	Backlinks            *int64 `json:"backlinks"`
	BrokenBacklinks      *int64 `json:"broken_backlinks"`
	ReferringDomains     *int64 `json:"referring_domains"`
	ReferringMainDomains *int64 `json:"referring_main_domains"`
	ReferringIPs         *int64 `json:"referring_ips"`
}

// Backlinks fetches the backlink summary for a domain. It never returns an
// error; failures land in the result's Error field. A missing summary is a
// successful empty response.
func (c *Client) Backlinks(ctx context.Context, domain string, opts *RequestOptions) BacklinksResult {
	target := NormalizeDomain(domain)
	opts = tagged(opts, target)

	payload := map[string]any{
		"target":              target,
		"include_subdomains":  true,
		"internal_list_limit": 10,
	}

	resp, err := c.Post(ctx, EndpointBacklinks, payload, opts)
	if err != nil {
		return BacklinksResult{Domain: target, Error: err.Error()}
	}

	result := BacklinksResult{Success: true, Domain: target, Cost: resp.Cost}

	raw := resp.FirstResult()
	if raw == nil {
		return result
	}
	var summary backlinksSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return BacklinksResult{Domain: target, Error: "parse backlinks result: " + err.Error()}
	}

	result.Backlinks = summary.Backlinks
	result.ReferringDomains = summary.ReferringDomains
	result.ReferringMainDomains = summary.ReferringMainDomains
	result.ReferringIPs = summary.ReferringIPs
	result.BrokenBacklinks = summary.BrokenBacklinks
	result.Rank = summary.Rank

	return result
}
