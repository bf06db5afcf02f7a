package credibility

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitford/domaincred/internal/dataforseo"
	"github.com/mwhitford/domaincred/internal/storage"
)

// SubsystemStatus reports which metric subsystems a stored record already
// covers.
type SubsystemStatus struct {
	HasWhois     bool `json:"has_whois"`
	HasBacklinks bool `json:"has_backlinks"`
	HasLabs      bool `json:"has_labs"`
}

// Complete reports whether all three subsystems are present.
func (s SubsystemStatus) Complete() bool {
	return s.HasWhois && s.HasBacklinks && s.HasLabs
}

// AnalyzeExistingData inspects a stored record and reports which subsystems
// are already fetched, by null-checking one representative field per
// subsystem. A nil record has nothing.
func AnalyzeExistingData(rec *storage.DomainCredibilityData) SubsystemStatus {
	if rec == nil {
		return SubsystemStatus{}
	}
	return SubsystemStatus{
		HasWhois:     rec.DomainAgeYears != nil,
		HasBacklinks: rec.Backlinks != nil,
		HasLabs:      rec.OrganicKeywords != nil,
	}
}

// DomainPlan is the per-domain slice of a fetch plan.
type DomainPlan struct {
	Domain         string  `json:"domain"`
	NeedsWhois     bool    `json:"needs_whois"`
	NeedsBacklinks bool    `json:"needs_backlinks"`
	NeedsLabs      bool    `json:"needs_labs"`
	EstimatedCost  float64 `json:"estimated_cost"`
}

// Calls returns how many provider calls this plan entry requires.
func (p DomainPlan) Calls() int {
	n := 0
	if p.NeedsWhois {
		n++
	}
	if p.NeedsBacklinks {
		n++
	}
	if p.NeedsLabs {
		n++
	}
	return n
}

// FetchPlan is a read-only pre-flight projection over stored data: which
// calls a batch fetch would make and what they would cost. Plans are derived
// and never persisted.
type FetchPlan struct {
	Domains         []DomainPlan `json:"domains"`
	TotalCalls      int          `json:"total_calls"`
	TotalCost       float64      `json:"total_cost"`
	DomainsComplete int          `json:"domains_complete"`
}

// CreateFetchPlan computes, per domain, which subsystems are missing from
// storage and sums the estimated cost of fetching them.
func (s *Service) CreateFetchPlan(ctx context.Context, domains []string) (*FetchPlan, error) {
	plan := &FetchPlan{}

	for _, d := range domains {
		target := dataforseo.NormalizeDomain(d)

		var existing *storage.DomainCredibilityData
		if s.store != nil {
			rec, err := s.store.GetDomain(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("load stored record for %s: %w", target, err)
			}
			existing = rec
		}

		status := AnalyzeExistingData(existing)
		entry := DomainPlan{
			Domain:         target,
			NeedsWhois:     !status.HasWhois,
			NeedsBacklinks: !status.HasBacklinks,
			NeedsLabs:      !status.HasLabs,
			EstimatedCost:  estimateCost(status),
		}

		plan.Domains = append(plan.Domains, entry)
		plan.TotalCalls += entry.Calls()
		plan.TotalCost += entry.EstimatedCost
		if status.Complete() {
			plan.DomainsComplete++
		}
	}

	return plan, nil
}

// SmartFetchResult reports what a smart fetch actually did.
type SmartFetchResult struct {
	Record     *storage.DomainCredibilityData `json:"record"`
	APIsCalled []string                       `json:"apis_called"`
	Cost       float64                        `json:"cost"`
	Errors     []string                       `json:"errors,omitempty"`
}

// SmartFetchDomain fetches only the subsystems missing from the existing
// record and merges the results, so re-running it never re-purchases data
// already present. Concurrent identical subsystem calls are coalesced: a
// second caller awaits the first caller's in-progress result instead of
// issuing (and paying for) a duplicate call. When existing is nil the stored
// record is used, and a fresh one is created if the domain was never fetched.
func (s *Service) SmartFetchDomain(ctx context.Context, domain string, existing *storage.DomainCredibilityData, opts FetchOptions) (*SmartFetchResult, error) {
	ctx = ensureCorrelation(ctx)
	target := dataforseo.NormalizeDomain(domain)

	if existing == nil && s.store != nil {
		rec, err := s.store.GetDomain(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("load stored record for %s: %w", target, err)
		}
		existing = rec
	}

	rec := &storage.DomainCredibilityData{Domain: target}
	if existing != nil {
		clone := *existing
		clone.Errors = nil
		rec = &clone
	}
	rec.Domain = target
	rec.FetchedAt = time.Now()

	status := AnalyzeExistingData(existing)
	result := &SmartFetchResult{Record: rec}
	if status.Complete() {
		return result, nil
	}

	client, err := s.clients(ctx, opts.ClientCode)
	if err != nil {
		return nil, err
	}
	ro := &dataforseo.RequestOptions{
		ClientCode:   opts.ClientCode,
		LocationCode: opts.LocationCode,
	}

	costBefore := rec.TotalCost

	if !status.HasWhois {
		v, _, _ := s.flight.Do(flightKey(dataforseo.EndpointWhois, target, 0), func() (any, error) {
			return client.Whois(ctx, target, ro), nil
		})
		applyWhois(rec, v.(dataforseo.WhoisResult))
		result.APIsCalled = append(result.APIsCalled, "whois")
		s.sleep(ctx)
	}

	if !status.HasBacklinks {
		v, _, _ := s.flight.Do(flightKey(dataforseo.EndpointBacklinks, target, 0), func() (any, error) {
			return client.Backlinks(ctx, target, ro), nil
		})
		applyBacklinks(rec, v.(dataforseo.BacklinksResult))
		result.APIsCalled = append(result.APIsCalled, "backlinks")
		s.sleep(ctx)
	}

	if !status.HasLabs {
		// Labs defaults the location inside the client; key on the resolved
		// value so an explicit default and an omitted one coalesce.
		loc := ro.LocationCode
		if loc == 0 {
			loc = dataforseo.DefaultLocationCode
		}
		v, _, _ := s.flight.Do(flightKey(dataforseo.EndpointLabs, target, loc), func() (any, error) {
			return client.Labs(ctx, target, ro), nil
		})
		applyLabs(rec, v.(dataforseo.LabsResult))
		result.APIsCalled = append(result.APIsCalled, "labs")
	}

	result.Cost = rec.TotalCost - costBefore
	result.Errors = rec.Errors

	s.persist(ctx, rec)
	return result, nil
}

func flightKey(endpoint, domain string, locationCode int) string {
	return fmt.Sprintf("%s|%s|%d", endpoint, domain, locationCode)
}
