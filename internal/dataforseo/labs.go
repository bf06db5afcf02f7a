package dataforseo

import (
	"context"
	"encoding/json"
)

// EndpointLabs is the provider path for keyword rank overviews.
const EndpointLabs = "dataforseo_labs/google/domain_rank_overview/live"

// DefaultLocationCode is the provider's code for the United States.
const DefaultLocationCode = 2840

// LabsResult is the normalized keyword/rank metric set for one domain.
// VisibilityScore is the derived 0-100 metric; nil when the domain has no
// ranking keywords at all.
type LabsResult struct {
	Success         bool
	Error           string
	Domain          string
	OrganicKeywords *int64
	OrganicTraffic  *float64
	VisibilityScore *float64
	Cost            float64
}

type labsPage struct {
	TotalCount int        `json:"total_count"`
	ItemsCount int        `json:"items_count"`
	Items      []labsItem `json:"items"`
}

type labsItem struct {
	Metrics struct {
		Organic PositionBuckets `json:"organic"`
	} `json:"metrics"`
}

// PositionBuckets counts ranking keywords by SERP position range, plus the
// overall keyword count and estimated traffic value.
type PositionBuckets struct {
	Pos1      int64    `json:"pos_1"`
	Pos2_3    int64    `json:"pos_2_3"`
	Pos4_10   int64    `json:"pos_4_10"`
	Pos11_20  int64    `json:"pos_11_20"`
	Pos21_30  int64    `json:"pos_21_30"`
	Pos31_40  int64    `json:"pos_31_40"`
	Pos41_50  int64    `json:"pos_41_50"`
	Pos51_60  int64    `json:"pos_51_60"`
	Pos61_70  int64    `json:"pos_61_70"`
	Pos71_80  int64    `json:"pos_71_80"`
	Pos81_90  int64    `json:"pos_81_90"`
	Pos91_100 int64    `json:"pos_91_100"`
	Count     int64    `json:"count"`
	ETV       *float64 `json:"etv"`
}

// Labs fetches the keyword rank overview for a domain and derives the
// visibility score. It never returns an error; failures land in the result's
// Error field.
func (c *Client) Labs(ctx context.Context, domain string, opts *RequestOptions) LabsResult {
	target := NormalizeDomain(domain)
	opts = tagged(opts, target)

	locationCode := DefaultLocationCode
	if opts.LocationCode != 0 {
		locationCode = opts.LocationCode
	}
	opts.LocationCode = locationCode

	payload := map[string]any{
		"target":        target,
		"location_code": locationCode,
		"language_code": "en",
	}

	resp, err := c.Post(ctx, EndpointLabs, payload, opts)
	if err != nil {
		return LabsResult{Domain: target, Error: err.Error()}
	}

	result := LabsResult{Success: true, Domain: target, Cost: resp.Cost}

	raw := resp.FirstResult()
	if raw == nil {
		return result
	}
	var page labsPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return LabsResult{Domain: target, Error: "parse labs result: " + err.Error()}
	}
	if len(page.Items) == 0 {
		return result
	}

	organic := page.Items[0].Metrics.Organic
	keywords := organic.totalKeywords()
	result.OrganicKeywords = &keywords
	result.OrganicTraffic = organic.ETV
	result.VisibilityScore = VisibilityScore(organic)

	return result
}

// bucketWeights decay from 100 at position 1 down to 0.1 at positions 91-100.
var bucketWeights = []float64{100, 80, 60, 30, 15, 8, 4, 2, 1, 0.5, 0.2, 0.1}

func (b PositionBuckets) counts() []int64 {
	return []int64{
		b.Pos1, b.Pos2_3, b.Pos4_10, b.Pos11_20, b.Pos21_30, b.Pos31_40,
		b.Pos41_50, b.Pos51_60, b.Pos61_70, b.Pos71_80, b.Pos81_90, b.Pos91_100,
	}
}

func (b PositionBuckets) totalKeywords() int64 {
	var total int64
	for _, n := range b.counts() {
		total += n
	}
	return total
}

// VisibilityScore computes the 0-100 weighted average of ranking positions:
// the weighted sum over position buckets normalized by the total keyword
// count. Returns nil when there are zero ranking keywords.
func VisibilityScore(b PositionBuckets) *float64 {
	counts := b.counts()

	var total int64
	var weighted float64
	for i, n := range counts {
		total += n
		weighted += float64(n) * bucketWeights[i]
	}
	if total == 0 {
		return nil
	}

	score := weighted / float64(total)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return &score
}
