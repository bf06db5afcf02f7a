// Package storage defines the persistence interfaces and record types shared
// by the diagnostic logger, the credential resolver, and the credibility
// services. Implementations live in the sqlite and memory subpackages.
package storage

import (
	"context"
	"time"
)

// LogStatus is the lifecycle state of a diagnostic log entry.
type LogStatus string

const (
	LogStatusPending  LogStatus = "PENDING"
	LogStatusSuccess  LogStatus = "SUCCESS"
	LogStatusFailed   LogStatus = "FAILED"
	LogStatusRetrying LogStatus = "RETRYING"
)

// LogEntry is one immutable diagnostic record for a provider call attempt
// sequence. Entries are appended once and never updated in place.
type LogEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Status        LogStatus `json:"status"`
	Endpoint      string    `json:"endpoint"`
	Method        string    `json:"method"`
	Domain        string    `json:"domain,omitempty"`
	LocationCode  int       `json:"location_code,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	RetryCount    int       `json:"retry_count"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	APIStatusCode int       `json:"api_status_code,omitempty"`
	ErrorType     string    `json:"error_type,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Cost          float64   `json:"cost"`
	CorrelationID string    `json:"correlation_id"`
	ClientCode    string    `json:"client_code,omitempty"`
}

// LogFilter narrows a log query. Zero values mean "no constraint".
type LogFilter struct {
	Status        LogStatus
	Endpoint      string
	CorrelationID string
	Since         time.Time
	Limit         int
}

// LogStore is an append-only, capped diagnostic log. Appending beyond the
// store's configured maximum evicts the oldest entries first.
type LogStore interface {
	AppendLogEntry(ctx context.Context, entry LogEntry) error
	ListLogEntries(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}

// CredentialRecord is one stored provider credential, optionally scoped to a
// single client code. An empty ClientCode marks a global default.
type CredentialRecord struct {
	ID         string    `json:"id"`
	ClientCode string    `json:"client_code,omitempty"`
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// CredentialStore holds provider credentials. ListCredentials returns records
// in insertion order so "first active of any scope" is deterministic.
type CredentialStore interface {
	ListCredentials(ctx context.Context) ([]CredentialRecord, error)
	SaveCredential(ctx context.Context, rec CredentialRecord) error
}

// DomainCredibilityData aggregates the whois, backlink, and labs metrics for
// one domain. Each subsystem's fields stay nil until fetched; Errors collects
// per-subsystem failure messages without invalidating the rest of the record.
type DomainCredibilityData struct {
	Domain    string    `json:"domain"`
	FetchedAt time.Time `json:"fetched_at"`

	// Whois subsystem
	CreatedDate    *string  `json:"created_date,omitempty"`
	ExpirationDate *string  `json:"expiration_date,omitempty"`
	UpdatedDate    *string  `json:"updated_date,omitempty"`
	DomainAgeYears *float64 `json:"domain_age_years,omitempty"`
	Registrar      *string  `json:"registrar,omitempty"`

	// Backlinks subsystem
	Backlinks            *int64 `json:"backlinks,omitempty"`
	ReferringDomains     *int64 `json:"referring_domains,omitempty"`
	ReferringMainDomains *int64 `json:"referring_main_domains,omitempty"`
	ReferringIPs         *int64 `json:"referring_ips,omitempty"`
	BrokenBacklinks      *int64 `json:"broken_backlinks,omitempty"`
	DomainRank           *int   `json:"domain_rank,omitempty"`

	// Labs subsystem
	OrganicKeywords *int64   `json:"organic_keywords,omitempty"`
	OrganicTraffic  *float64 `json:"organic_traffic,omitempty"`
	VisibilityScore *float64 `json:"visibility_score,omitempty"`

	Errors    []string `json:"errors,omitempty"`
	TotalCost float64  `json:"total_cost"`
}

// DomainStore persists credibility records keyed by normalized domain.
// GetDomain returns (nil, nil) when the domain has never been fetched.
type DomainStore interface {
	GetDomain(ctx context.Context, domain string) (*DomainCredibilityData, error)
	UpsertDomain(ctx context.Context, rec *DomainCredibilityData) error
	ListDomains(ctx context.Context) ([]*DomainCredibilityData, error)
}

// Store combines all persistence concerns behind one value, matching how the
// sqlite and memory implementations expose them.
type Store interface {
	LogStore
	CredentialStore
	DomainStore
	Close() error
}
