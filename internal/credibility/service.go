// Package credibility aggregates whois, backlink, and labs metrics into
// per-domain credibility records, and plans cost-aware "smart" fetches that
// skip data already purchased.
package credibility

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mwhitford/domaincred/internal/dataforseo"
	"github.com/mwhitford/domaincred/internal/diaglog"
	"github.com/mwhitford/domaincred/internal/storage"
)

// interCallPause spaces consecutive subsystem calls for one domain.
const interCallPause = 100 * time.Millisecond

// MetricsClient is the subset of the provider client the service uses.
type MetricsClient interface {
	Whois(ctx context.Context, domain string, opts *dataforseo.RequestOptions) dataforseo.WhoisResult
	Backlinks(ctx context.Context, domain string, opts *dataforseo.RequestOptions) dataforseo.BacklinksResult
	Labs(ctx context.Context, domain string, opts *dataforseo.RequestOptions) dataforseo.LabsResult
}

// ClientSource yields a metrics client for a client code. A
// *dataforseo.Registry is the usual implementation behind this.
type ClientSource func(ctx context.Context, clientCode string) (MetricsClient, error)

// Service runs full and smart credibility fetches against the provider and
// persists the results.
type Service struct {
	clients ClientSource
	store   storage.DomainStore
	log     *slog.Logger
	flight  singleflight.Group
	pause   time.Duration
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithPause overrides the pacing delay between subsystem calls.
func WithPause(d time.Duration) ServiceOption {
	return func(s *Service) { s.pause = d }
}

// NewService creates a credibility service. The store may be nil; results
// are then returned without being persisted.
func NewService(clients ClientSource, store storage.DomainStore, log *slog.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		clients: clients,
		store:   store,
		log:     log,
		pause:   interCallPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchOptions carries per-fetch settings.
type FetchOptions struct {
	ClientCode   string
	LocationCode int
}

// FetchDomain sequentially fetches whois, backlinks, and labs metrics for
// one domain. A subsystem failure leaves its fields nil and is recorded in
// the record's Errors; the fetch never aborts early. The only error return
// is a credential/config failure before any call is made.
func (s *Service) FetchDomain(ctx context.Context, domain string, opts FetchOptions) (*storage.DomainCredibilityData, error) {
	ctx = ensureCorrelation(ctx)
	target := dataforseo.NormalizeDomain(domain)

	client, err := s.clients(ctx, opts.ClientCode)
	if err != nil {
		return nil, err
	}

	rec := &storage.DomainCredibilityData{
		Domain:    target,
		FetchedAt: time.Now(),
	}
	ro := &dataforseo.RequestOptions{
		ClientCode:   opts.ClientCode,
		LocationCode: opts.LocationCode,
	}

	applyWhois(rec, client.Whois(ctx, target, ro))
	s.sleep(ctx)
	applyBacklinks(rec, client.Backlinks(ctx, target, ro))
	s.sleep(ctx)
	applyLabs(rec, client.Labs(ctx, target, ro))

	s.persist(ctx, rec)
	return rec, nil
}

func (s *Service) sleep(ctx context.Context) {
	timer := time.NewTimer(s.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Service) persist(ctx context.Context, rec *storage.DomainCredibilityData) {
	if s.store == nil {
		return
	}
	if err := s.store.UpsertDomain(ctx, rec); err != nil {
		s.log.Error("failed to persist domain record",
			slog.String("domain", rec.Domain), slog.String("error", err.Error()))
	}
}

// ensureCorrelation mints a correlation id when the caller did not provide
// one, so direct library use still groups its log entries.
func ensureCorrelation(ctx context.Context) context.Context {
	if diaglog.CorrelationID(ctx) != "" {
		return ctx
	}
	ctx, _ = diaglog.WithCorrelation(ctx)
	return ctx
}

func applyWhois(rec *storage.DomainCredibilityData, w dataforseo.WhoisResult) {
	if !w.Success {
		rec.Errors = append(rec.Errors, "whois: "+w.Error)
		return
	}
	rec.CreatedDate = w.CreatedDate
	rec.ExpirationDate = w.ExpirationDate
	rec.UpdatedDate = w.UpdatedDate
	rec.DomainAgeYears = w.DomainAgeYears
	rec.Registrar = w.Registrar
	rec.TotalCost += w.Cost
}

func applyBacklinks(rec *storage.DomainCredibilityData, b dataforseo.BacklinksResult) {
	if !b.Success {
		rec.Errors = append(rec.Errors, "backlinks: "+b.Error)
		return
	}
	rec.Backlinks = b.Backlinks
	rec.ReferringDomains = b.ReferringDomains
	rec.ReferringMainDomains = b.ReferringMainDomains
	rec.ReferringIPs = b.ReferringIPs
	rec.BrokenBacklinks = b.BrokenBacklinks
	rec.DomainRank = b.Rank
	rec.TotalCost += b.Cost
}

func applyLabs(rec *storage.DomainCredibilityData, l dataforseo.LabsResult) {
	if !l.Success {
		rec.Errors = append(rec.Errors, "labs: "+l.Error)
		return
	}
	rec.OrganicKeywords = l.OrganicKeywords
	rec.OrganicTraffic = l.OrganicTraffic
	rec.VisibilityScore = l.VisibilityScore
	rec.TotalCost += l.Cost
}
