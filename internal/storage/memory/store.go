package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mwhitford/domaincred/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces, intended
// for tests and single-shot CLI runs.
type Store struct {
	mu            sync.RWMutex
	entries       []storage.LogEntry
	credentials   []storage.CredentialRecord
	domains       map[string]*storage.DomainCredibilityData
	maxLogEntries int
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store capped at maxLogEntries diagnostic
// entries. A non-positive cap falls back to the sqlite default.
func New(maxLogEntries int) *Store {
	if maxLogEntries <= 0 {
		maxLogEntries = 1000
	}
	return &Store{
		domains:       make(map[string]*storage.DomainCredibilityData),
		maxLogEntries: maxLogEntries,
	}
}

func (s *Store) AppendLogEntry(ctx context.Context, entry storage.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.maxLogEntries {
		s.entries = s.entries[len(s.entries)-s.maxLogEntries:]
	}
	return nil
}

func (s *Store) ListLogEntries(ctx context.Context, filter storage.LogFilter) ([]storage.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.LogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Endpoint != "" && e.Endpoint != filter.Endpoint {
			continue
		}
		if filter.CorrelationID != "" && e.CorrelationID != filter.CorrelationID {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]storage.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.CredentialRecord, len(s.credentials))
	copy(out, s.credentials)
	return out, nil
}

func (s *Store) SaveCredential(ctx context.Context, rec storage.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.credentials {
		if existing.ID == rec.ID {
			s.credentials[i] = rec
			return nil
		}
	}
	s.credentials = append(s.credentials, rec)
	return nil
}

func (s *Store) GetDomain(ctx context.Context, domain string) (*storage.DomainCredibilityData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.domains[domain]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *Store) UpsertDomain(ctx context.Context, rec *storage.DomainCredibilityData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rec
	s.domains[rec.Domain] = &clone
	return nil
}

func (s *Store) ListDomains(ctx context.Context) ([]*storage.DomainCredibilityData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*storage.DomainCredibilityData
	for _, rec := range s.domains {
		clone := *rec
		recs = append(recs, &clone)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Domain < recs[j].Domain })
	return recs, nil
}

func (s *Store) Close() error {
	return nil
}
